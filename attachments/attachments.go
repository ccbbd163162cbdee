// Package attachments fetches and applies the per-part assertion
// attachments of a report. A report document may ship without assertions;
// its testcases then hold Pending children until their part's attachment
// is loaded.
package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ethereum-optimism/infra/reportree/merge"
)

// Assertions maps testcase uids to their raw assertion lists
type Assertions map[string][]json.RawMessage

var (
	// ErrNotFound is returned when an attachment does not exist
	ErrNotFound = errors.New("attachment not found")
)

// Fetcher retrieves the assertions attachment of one part of a report
type Fetcher interface {
	Fetch(ctx context.Context, reportUID, partUID string) (Assertions, error)
}

// ValidateName rejects uids that cannot be used as a single path element
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

// Path returns the attachment path of a part relative to the server root,
// i.e. reports/{report_uid}/attachments/assertions_{part_uid}
func Path(reportUID, partUID string) string {
	return path.Join("reports", reportUID, "attachments", merge.AttachmentName(partUID))
}
