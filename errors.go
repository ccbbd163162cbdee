package reportree

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/reportree/exitcodes"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// RuntimeError means no verdict could be given: the report was unreadable
// or malformed, its parts conflicted, or attachments failed in strict mode.
type RuntimeError struct {
	Err error
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitCode makes RuntimeError a cli.ExitCoder
func (e *RuntimeError) ExitCode() int {
	return exitcodes.RuntimeErr
}

// ReportFailureError is the verdict on a report that rolled up to failed
// or error. It is not an operational failure.
type ReportFailureError struct {
	Report  string
	Status  types.Status
	Counter types.Counter
}

// NewReportFailureError returns the verdict on root
func NewReportFailureError(root *types.Entry) *ReportFailureError {
	return &ReportFailureError{Report: root.Name, Status: root.Status.Resolved(), Counter: root.Counter}
}

func (e *ReportFailureError) Error() string {
	return fmt.Sprintf("report %q %s: %d failed, %d error of %d",
		e.Report, e.Status, e.Counter.Failed, e.Counter.Error, e.Counter.Total)
}

func (e *ReportFailureError) ExitCode() int {
	return exitcodes.ReportFailure
}

func IsRuntimeError(err error) bool {
	var target *RuntimeError
	return errors.As(err, &target)
}

func IsReportFailureError(err error) bool {
	var target *ReportFailureError
	return errors.As(err, &target)
}
