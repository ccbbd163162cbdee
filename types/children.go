package types

// LoadState tells whether the children of an entry are available
type LoadState int

const (
	// StateLoaded means the children are known, possibly empty
	StateLoaded LoadState = iota
	// StatePending means the children have not been fetched yet
	StatePending
	// StateFailed means fetching the children failed
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Children is the sum type Loaded(entries) | Pending | Failed(err).
// The zero value is an empty loaded list.
type Children struct {
	state   LoadState
	entries []*Entry
	err     error
}

// Loaded returns a loaded child list. The slice is owned by the result.
func Loaded(entries ...*Entry) Children {
	return Children{state: StateLoaded, entries: entries}
}

// Pending returns the not-loaded sentinel
func Pending() Children {
	return Children{state: StatePending}
}

// FailedLoad returns a child list whose fetch failed with err
func FailedLoad(err error) Children {
	return Children{state: StateFailed, err: err}
}

// State returns the load state
func (c Children) State() LoadState {
	return c.state
}

// IsLoaded reports whether the children are available
func (c Children) IsLoaded() bool {
	return c.state == StateLoaded
}

// Entries returns the child entries, nil unless loaded.
// Callers must not modify the returned slice.
func (c Children) Entries() []*Entry {
	if c.state != StateLoaded {
		return nil
	}
	return c.entries
}

// Len returns the number of loaded children
func (c Children) Len() int {
	return len(c.Entries())
}

// Err returns the fetch error of a failed child list
func (c Children) Err() error {
	return c.err
}

// At returns the i-th loaded child, or nil when out of range
func (c Children) At(i int) *Entry {
	entries := c.Entries()
	if i < 0 || i >= len(entries) {
		return nil
	}
	return entries[i]
}
