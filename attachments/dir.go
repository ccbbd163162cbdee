package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/reportree/merge"
)

const attachmentExt = ".json"

// Dir stores attachments on disk as
// <root>/<report_uid>/attachments/assertions_<part_uid>.json
type Dir struct {
	root string
}

// NewDir returns a store rooted at root
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory the store is rooted at
func (d *Dir) Root() string {
	return d.root
}

// File returns the path of a named attachment of a report. The name may
// omit the .json extension.
func (d *Dir) File(reportUID, name string) (string, error) {
	if err := ValidateName(reportUID); err != nil {
		return "", fmt.Errorf("report uid: %w", err)
	}
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("attachment: %w", err)
	}
	if filepath.Ext(name) != attachmentExt {
		name += attachmentExt
	}
	return filepath.Join(d.root, reportUID, "attachments", name), nil
}

// Fetch reads the assertions attachment of one part
func (d *Dir) Fetch(ctx context.Context, reportUID, partUID string) (Assertions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName(partUID); err != nil {
		return nil, fmt.Errorf("part uid: %w", err)
	}
	file, err := d.File(reportUID, merge.AttachmentName(partUID))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", file, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var out Assertions
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	return out, nil
}

// Save writes the assertions attachment of one part
func (d *Dir) Save(reportUID, partUID string, assertions Assertions) (string, error) {
	if err := ValidateName(partUID); err != nil {
		return "", fmt.Errorf("part uid: %w", err)
	}
	file, err := d.File(reportUID, merge.AttachmentName(partUID))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return "", fmt.Errorf("creating attachment directory: %w", err)
	}
	data, err := json.Marshal(assertions)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", file, err)
	}
	return file, nil
}
