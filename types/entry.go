package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Address locates a node by the sibling indices on the path from the root.
// The root has an empty, non-nil address.
type Address []int

func (a Address) String() string {
	if len(a) == 0 {
		return "/"
	}
	parts := make([]string, len(a))
	for i, idx := range a {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// Child returns a new address one level below a
func (a Address) Child(i int) Address {
	child := make(Address, len(a)+1)
	copy(child, a)
	child[len(a)] = i
	return child
}

// Equal reports whether both addresses point at the same node
func (a Address) Equal(other Address) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a or one of its ancestors
func (a Address) HasPrefix(prefix Address) bool {
	return len(prefix) <= len(a) && a[:len(prefix)].Equal(prefix)
}

// ParseAddress parses the form produced by Address.String
func ParseAddress(s string) (Address, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Address{}, nil
	}
	fields := strings.Split(s, "/")
	addr := make(Address, len(fields))
	for i, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid address element %q", f)
		}
		addr[i] = idx
	}
	return addr, nil
}

// Entry is one node of a report tree.
//
// Entries are treated as immutable once built: transformations copy the
// nodes they change and share the rest with their input.
type Entry struct {
	Category  Category
	Kind      string // wire category, when it differs from Category
	UID       string
	Name      string
	Status    Status
	RawStatus string // wire status, when it differs from Status
	// StatusDerived is set when aggregation derived the status of a testcase
	// from its assertions because none was recorded
	StatusDerived bool
	Counter   Counter
	Entries   Children

	Part        *Part // multitest shards only
	Tags        Tags
	Description string
	Logs        json.RawMessage
	Timer       json.RawMessage

	// Payload is the raw assertion object of an assertion-group entry
	Payload json.RawMessage

	// ResourceMetaPath points at the resource usage document of a testplan
	ResourceMetaPath string

	// Extra holds wire fields with no dedicated field, carried through unmodified
	Extra map[string]json.RawMessage

	// Address is set by tree.Index
	Address Address

	// SourcePart is the uid of the part a testcase of a merged multitest came from
	SourcePart string

	// Partial marks a merged group built from an incomplete part set, or
	// from parts some of which have not loaded its children
	Partial bool

	// Unloaded is the counter of merged parts whose children are not loaded.
	// Aggregation adds it to the counters of the loaded children.
	Unloaded Counter
}

// Option configures an Entry built by NewEntry
type Option func(*Entry)

// WithStatus sets the authoritative status
func WithStatus(status Status) Option {
	return func(e *Entry) { e.Status = status }
}

// WithCounter sets the decoded counter
func WithCounter(c Counter) Option {
	return func(e *Entry) { e.Counter = c }
}

// WithChildren sets the children to a loaded list
func WithChildren(children ...*Entry) Option {
	return func(e *Entry) { e.Entries = Loaded(children...) }
}

// WithPendingChildren marks the children as not loaded
func WithPendingChildren() Option {
	return func(e *Entry) { e.Entries = Pending() }
}

// WithPart marks a multitest as one shard of a logical multitest
func WithPart(index, total int) Option {
	return func(e *Entry) { e.Part = &Part{Index: index, Total: total} }
}

// WithTags sets tags parsed from "value" or "name=value" strings.
// Unparseable tags are ignored; use NewTags to see the error.
func WithTags(tags ...string) Option {
	return func(e *Entry) {
		if parsed, err := NewTags(tags...); err == nil {
			e.Tags = parsed
		}
	}
}

// WithDescription sets the description
func WithDescription(description string) Option {
	return func(e *Entry) { e.Description = description }
}

// NewEntry builds and validates a single entry
func NewEntry(category Category, uid, name string, opts ...Option) (*Entry, error) {
	e := &Entry{Category: category, UID: uid, Name: name}
	for _, opt := range opts {
		opt(e)
	}
	if e.Category.IsBottommost() && e.Counter.IsZero() {
		e.Counter = LeafCounter(e.Status, e.RawStatus)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustEntry is NewEntry that panics on invalid input, for fixtures
func MustEntry(category Category, uid, name string, opts ...Option) *Entry {
	e, err := NewEntry(category, uid, name, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Validate checks the category-specific rules of a single node
// and the categories of its direct children
func (e *Entry) Validate() error {
	path := []string{e.UID}
	if !e.Category.IsValid() {
		return NewTreeIntegrityError(path, "unknown category %q", e.Category)
	}
	if e.UID == "" {
		return NewTreeIntegrityError(nil, "%s entry %q has no uid", e.Category, e.Name)
	}
	if e.Status != StatusNone && !e.Status.IsValid() {
		return NewTreeIntegrityError(path, "invalid status %q", e.Status)
	}
	if err := e.Counter.Validate(); err != nil {
		return &TreeIntegrityError{Path: path, Reason: "invalid counter", Err: err}
	}
	// part ranges are checked when the part set is merged
	if e.Part != nil && e.Category != CategoryMultitest {
		return NewTreeIntegrityError(path, "part set on %s entry", e.Category)
	}
	if (e.Partial || !e.Unloaded.IsZero()) && !e.Category.IsGroup() {
		return NewTreeIntegrityError(path, "partial merge state set on %s entry", e.Category)
	}
	if err := e.Unloaded.Validate(); err != nil {
		return &TreeIntegrityError{Path: path, Reason: "invalid unloaded counter", Err: err}
	}
	if e.SourcePart != "" && e.Category != CategoryTestcase {
		return NewTreeIntegrityError(path, "source part set on %s entry", e.Category)
	}
	if len(e.Payload) > 0 && e.Category != CategoryAssertionGroup {
		return NewTreeIntegrityError(path, "assertion payload set on %s entry", e.Category)
	}
	for i, child := range e.Entries.Entries() {
		if child == nil {
			return NewTreeIntegrityError(path, "nil child at index %d", i)
		}
		if !e.Category.CanContain(child.Category) {
			return NewTreeIntegrityError(append(path, child.UID), "%s entry cannot contain %s entry", e.Category, child.Category)
		}
	}
	return nil
}

// Clone returns a shallow copy: children, tags and metadata are shared
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// WithEntries returns a copy of e holding the given children
func (e *Entry) WithEntries(children Children) *Entry {
	c := e.Clone()
	c.Entries = children
	return c
}

// WireCategory returns the category name used when encoding
func (e *Entry) WireCategory() string {
	if e.Kind != "" {
		return e.Kind
	}
	return string(e.Category)
}

// WireStatus returns the status string used when encoding
func (e *Entry) WireStatus() string {
	if e.RawStatus != "" {
		if parsed, _ := ParseStatus(e.RawStatus); parsed == e.Status {
			return e.RawStatus
		}
	}
	return string(e.Status)
}

// IsAssertion reports whether e is an assertion below a testcase
func (e *Entry) IsAssertion() bool {
	return e.Category == CategoryAssertionGroup
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s %q (%s)", e.Category, e.Name, e.Status.Resolved())
}
