package types

import (
	"errors"
	"fmt"
	"strings"
)

// TreeIntegrityError reports a malformed report tree
type TreeIntegrityError struct {
	Path   []string // uids from the root to the offending node
	Reason string
	Err    error
}

func (e *TreeIntegrityError) Error() string {
	msg := "tree integrity error"
	if len(e.Path) > 0 {
		msg += " at " + strings.Join(e.Path, "/")
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *TreeIntegrityError) Unwrap() error {
	return e.Err
}

// NewTreeIntegrityError creates a new TreeIntegrityError
func NewTreeIntegrityError(path []string, format string, args ...any) *TreeIntegrityError {
	return &TreeIntegrityError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// IsTreeIntegrityError checks if the error is or wraps a TreeIntegrityError
func IsTreeIntegrityError(err error) bool {
	var treeErr *TreeIntegrityError
	return err != nil && errors.As(err, &treeErr)
}

// MergeConflictError reports multitest parts that cannot be merged
type MergeConflictError struct {
	Name   string // base name of the logical multitest
	Reason string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict in %q: %s", e.Name, e.Reason)
}

// NewMergeConflictError creates a new MergeConflictError
func NewMergeConflictError(name, format string, args ...any) *MergeConflictError {
	return &MergeConflictError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// IsMergeConflictError checks if the error is or wraps a MergeConflictError
func IsMergeConflictError(err error) bool {
	var mergeErr *MergeConflictError
	return err != nil && errors.As(err, &mergeErr)
}
