// Package exitcodes lists the process exit codes of reportree.
package exitcodes

import "github.com/ethereum-optimism/infra/reportree/types"

const (
	// Success: the command finished, and a shown report passed
	Success = 0
	// ReportFailure: the shown report rolled up to failed or error
	ReportFailure = 1
	// RuntimeErr: no verdict, the report could not be read, merged or loaded
	RuntimeErr = 2
)

// ForStatus returns the exit code of a shown report with the given rollup status
func ForStatus(status types.Status) int {
	if status.IsFailure() {
		return ReportFailure
	}
	return Success
}
