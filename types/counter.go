package types

import "fmt"

// Counter holds pass/fail/error counts for a subtree
type Counter struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Error  int `json:"error"`
	Total  int `json:"total"`
}

// Add returns the componentwise sum of c and other
func (c Counter) Add(other Counter) Counter {
	return Counter{
		Passed: c.Passed + other.Passed,
		Failed: c.Failed + other.Failed,
		Error:  c.Error + other.Error,
		Total:  c.Total + other.Total,
	}
}

// IsZero reports whether all counts are zero
func (c Counter) IsZero() bool {
	return c == Counter{}
}

// Validate checks that counts are non-negative and the total covers the buckets
func (c Counter) Validate() error {
	if c.Passed < 0 || c.Failed < 0 || c.Error < 0 || c.Total < 0 {
		return fmt.Errorf("negative count in %+v", c)
	}
	if c.Total < c.Passed+c.Failed+c.Error {
		return fmt.Errorf("total %d is less than passed+failed+error (%d)", c.Total, c.Passed+c.Failed+c.Error)
	}
	return nil
}

// Status returns the status implied by the failure buckets of c,
// StatusNone when there are no failures
func (c Counter) Status() Status {
	switch {
	case c.Error > 0:
		return StatusError
	case c.Failed > 0:
		return StatusFailed
	}
	return StatusNone
}

// PassRate returns the percentage of passed tests, 0 for an empty counter
func (c Counter) PassRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Passed) / float64(c.Total) * 100
}

// CounterFor returns the authoritative counter of a single testcase with the given status
func CounterFor(status Status) Counter {
	c := Counter{Total: 1}
	switch status {
	case StatusPassed:
		c.Passed = 1
	case StatusFailed:
		c.Failed = 1
	case StatusError:
		c.Error = 1
	}
	return c
}

// LeafCounter returns the counter of a single testcase from its status and
// wire status. Skipped and expected outcomes count towards the total only.
func LeafCounter(status Status, raw string) Counter {
	if status == StatusPassed && IsUncounted(raw) {
		return Counter{Total: 1}
	}
	return CounterFor(status)
}
