package types

import "strings"

// Status represents the rollup outcome of a report entry
type Status string

const (
	StatusNone       Status = ""           // Not set, resolved by aggregation
	StatusPassed     Status = "passed"     // All tests passed
	StatusFailed     Status = "failed"     // At least one test failed
	StatusError      Status = "error"      // At least one test errored
	StatusIncomplete Status = "incomplete" // Execution or loading did not finish
	StatusUnknown    Status = "unknown"    // No result could be derived
)

// rank orders statuses by precedence, higher wins
var rank = map[Status]int{
	StatusNone:       0,
	StatusPassed:     1,
	StatusUnknown:    2,
	StatusIncomplete: 3,
	StatusFailed:     4,
	StatusError:      5,
}

// wireStatuses maps testplan status strings outside the closed set onto it.
// Skipped, expected and unstable outcomes rank below a pass, so they take
// the passed rank and never outweigh a real result.
var wireStatuses = map[string]Status{
	"passed":       StatusPassed,
	"failed":       StatusFailed,
	"error":        StatusError,
	"incomplete":   StatusIncomplete,
	"unknown":      StatusUnknown,
	"xpass_strict": StatusFailed,
	"xpass-strict": StatusFailed,
	"skipped":      StatusPassed,
	"xfail":        StatusPassed,
	"xpass":        StatusPassed,
	"unstable":     StatusPassed,
}

// uncounted wire statuses add to the total of a testcase but to no bucket
var uncounted = map[string]struct{}{
	"skipped":  {},
	"xfail":    {},
	"xpass":    {},
	"unstable": {},
}

// IsUncounted reports whether a testcase with the wire status raw counts
// towards the total only
func IsUncounted(raw string) bool {
	_, ok := uncounted[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// ParseStatus converts a wire status string into a Status.
// The second return value is false when the string was not recognised.
func ParseStatus(s string) (Status, bool) {
	if s == "" {
		return StatusNone, true
	}
	status, ok := wireStatuses[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return StatusUnknown, false
	}
	return status, true
}

// IsValid reports whether s is one of the closed set of statuses
func (s Status) IsValid() bool {
	_, ok := rank[s]
	return ok && s != StatusNone
}

// Precedes returns true if s wins over other when rolled up
func (s Status) Precedes(other Status) bool {
	return rank[s] > rank[other]
}

// Precedent returns the status with the highest precedence.
// An empty list yields StatusNone.
func Precedent(statuses ...Status) Status {
	result := StatusNone
	for _, s := range statuses {
		if s.Precedes(result) {
			result = s
		}
	}
	return result
}

// Resolved returns s, or StatusUnknown when s is unset
func (s Status) Resolved() Status {
	if s == StatusNone {
		return StatusUnknown
	}
	return s
}

// IsFailure returns true for failed and errored statuses
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusError
}
