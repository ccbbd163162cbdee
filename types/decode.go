package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DecodeOptions controls how report documents are decoded
type DecodeOptions struct {
	// PendingAssertions marks testcases with no assertions as not loaded.
	// Use it for structure-only documents whose assertions live in attachments.
	PendingAssertions bool
}

var knownKeys = map[string]struct{}{
	"category":           {},
	"uid":                {},
	"name":               {},
	"status":             {},
	"counter":            {},
	"entries":            {},
	"part":               {},
	"tags":               {},
	"description":        {},
	"logs":               {},
	"timer":              {},
	"resource_meta_path": {},
	"address":            {},
	"source_part":        {},
	"partial":            {},
	"unloaded_counter":   {},
	"load_error":         {},
}

// wire report type names used when an entry carries no category
const (
	typeTestCase  = "TestCaseReport"
	typeTestGroup = "TestGroupReport"
	typeTestPlan  = "TestReport"
)

type decodeItem struct {
	raw       json.RawMessage
	target    **Entry
	path      []string
	index     int
	assertion bool
	parent    Category
}

// DecodeReport decodes a report document into an entry tree.
// Entries that are null or absent decode to Pending children.
func DecodeReport(data []byte, opts DecodeOptions) (*Entry, error) {
	var root *Entry
	if err := decode([]decodeItem{{raw: data, target: &root}}, opts); err != nil {
		return nil, err
	}
	return root, nil
}

// DecodeAssertions decodes the assertion list of one testcase, as found in
// assertion attachments, into assertion-group entries
func DecodeAssertions(items []json.RawMessage) ([]*Entry, error) {
	out := make([]*Entry, len(items))
	stack := make([]decodeItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		stack = append(stack, decodeItem{
			raw:       items[i],
			target:    &out[i],
			index:     i,
			assertion: true,
			parent:    CategoryTestcase,
		})
	}
	if err := decode(stack, DecodeOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(stack []decodeItem, opts DecodeOptions) error {
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entry, children, err := decodeNode(item, opts)
		if err != nil {
			return err
		}
		*item.target = entry
		if children == nil {
			continue
		}
		slots := make([]*Entry, len(children))
		entry.Entries = Loaded(slots...)
		childPath := append(append([]string(nil), item.path...), entry.UID)
		// push in reverse so siblings decode in order
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, decodeItem{
				raw:       children[i],
				target:    &slots[i],
				index:     i,
				path:      childPath,
				assertion: item.assertion || entry.Category.IsBottommost(),
				parent:    entry.Category,
			})
		}
	}
	return nil
}

// decodeNode decodes one node and returns the raw children still to decode,
// nil when the node has no loaded children
func decodeNode(item decodeItem, opts DecodeOptions) (*Entry, []json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item.raw, &fields); err != nil {
		return nil, nil, &TreeIntegrityError{Path: item.path, Reason: "entry is not an object", Err: err}
	}
	if item.assertion {
		return decodeAssertion(item, fields)
	}

	e := &Entry{}
	if err := decodeString(fields, "uid", &e.UID); err != nil {
		return nil, nil, wrapField(item.path, "uid", err)
	}
	path := append(append([]string(nil), item.path...), e.UID)
	if err := decodeString(fields, "name", &e.Name); err != nil {
		return nil, nil, wrapField(path, "name", err)
	}
	if err := decodeCategory(fields, e); err != nil {
		return nil, nil, &TreeIntegrityError{Path: path, Reason: "invalid category", Err: err}
	}
	if item.parent != "" && !item.parent.CanContain(e.Category) {
		return nil, nil, NewTreeIntegrityError(path, "%s entry cannot contain %s entry", item.parent, e.Category)
	}

	var rawStatus string
	if err := decodeString(fields, "status", &rawStatus); err != nil {
		return nil, nil, wrapField(path, "status", err)
	}
	status, _ := ParseStatus(rawStatus)
	e.Status = status
	if rawStatus != string(status) {
		e.RawStatus = rawStatus
	}
	if raw, ok := fields["counter"]; ok && !isNull(raw) {
		// missing buckets default to zero
		if err := json.Unmarshal(raw, &e.Counter); err != nil {
			return nil, nil, wrapField(path, "counter", err)
		}
		if sum := e.Counter.Passed + e.Counter.Failed + e.Counter.Error; e.Counter.Total < sum {
			e.Counter.Total = sum
		}
	}
	if raw, ok := fields["part"]; ok && !isNull(raw) {
		e.Part = &Part{}
		if err := json.Unmarshal(raw, e.Part); err != nil {
			return nil, nil, wrapField(path, "part", err)
		}
	}
	if raw, ok := fields["tags"]; ok && !isNull(raw) {
		var tags Tags
		if err := json.Unmarshal(raw, &tags); err != nil {
			return nil, nil, wrapField(path, "tags", err)
		}
		if len(tags) > 0 {
			e.Tags = tags.normalize()
		}
	}
	if err := decodeString(fields, "description", &e.Description); err != nil {
		return nil, nil, wrapField(path, "description", err)
	}
	if err := decodeString(fields, "resource_meta_path", &e.ResourceMetaPath); err != nil {
		return nil, nil, wrapField(path, "resource_meta_path", err)
	}
	if err := decodeString(fields, "source_part", &e.SourcePart); err != nil {
		return nil, nil, wrapField(path, "source_part", err)
	}
	if raw, ok := fields["partial"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &e.Partial); err != nil {
			return nil, nil, wrapField(path, "partial", err)
		}
	}
	if raw, ok := fields["unloaded_counter"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &e.Unloaded); err != nil {
			return nil, nil, wrapField(path, "unloaded_counter", err)
		}
	}
	if raw, ok := fields["address"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &e.Address); err != nil {
			return nil, nil, wrapField(path, "address", err)
		}
	}
	e.Logs = nonNull(fields["logs"])
	e.Timer = nonNull(fields["timer"])
	for key, raw := range fields {
		if _, known := knownKeys[key]; known {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[key] = raw
	}

	children, err := decodeEntries(path, fields)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case children == nil:
		e.Entries = Pending()
		var loadErr string
		if err := decodeString(fields, "load_error", &loadErr); err == nil && loadErr != "" {
			e.Entries = FailedLoad(errors.New(loadErr))
		}
	case len(children) == 0 && e.Category.IsBottommost() && opts.PendingAssertions:
		e.Entries = Pending()
		children = nil
	}
	if err := e.Validate(); err != nil {
		var treeErr *TreeIntegrityError
		if errors.As(err, &treeErr) {
			treeErr.Path = path
		}
		return nil, nil, err
	}
	return e, children, nil
}

// decodeEntries returns nil for a null or absent list and a non-nil slice otherwise
func decodeEntries(path []string, fields map[string]json.RawMessage) ([]json.RawMessage, error) {
	raw, ok := fields["entries"]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var children []json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, &TreeIntegrityError{Path: path, Reason: "entries is neither a list nor null", Err: err}
	}
	if children == nil {
		children = []json.RawMessage{}
	}
	return children, nil
}

func decodeCategory(fields map[string]json.RawMessage, e *Entry) error {
	var wire, typ string
	if err := decodeString(fields, "category", &wire); err != nil {
		return err
	}
	if wire == "" {
		if err := decodeString(fields, "type", &typ); err != nil {
			return err
		}
		switch typ {
		case typeTestCase:
			wire = string(CategoryTestcase)
		case typeTestPlan:
			wire = string(CategoryTestplan)
		case typeTestGroup:
			wire = string(CategoryMultitest)
		default:
			return fmt.Errorf("entry has neither category nor known type")
		}
	}
	category, ok := ParseCategory(wire)
	if !ok {
		return fmt.Errorf("unknown category %q", wire)
	}
	e.Category = category
	if wire != string(category) {
		e.Kind = wire
	}
	return nil
}

// decodeAssertion turns a raw assertion object into an assertion-group entry.
// Assertions carry no uid; their index among siblings is used instead.
func decodeAssertion(item decodeItem, fields map[string]json.RawMessage) (*Entry, []json.RawMessage, error) {
	e := &Entry{
		Category: CategoryAssertionGroup,
		UID:      strconv.Itoa(item.index),
		Payload:  item.raw,
		Entries:  Loaded(),
	}
	_ = decodeString(fields, "type", &e.Kind)
	_ = decodeString(fields, "description", &e.Name)
	if e.Name == "" {
		e.Name = e.Kind
	}
	e.Status = StatusUnknown
	if raw, ok := fields["passed"]; ok && !isNull(raw) {
		var passed bool
		if err := json.Unmarshal(raw, &passed); err != nil {
			return nil, nil, wrapField(item.path, "passed", err)
		}
		e.Status = StatusFailed
		if passed {
			e.Status = StatusPassed
		}
	}
	raw, ok := fields["entries"]
	if !ok || isNull(raw) {
		return e, nil, nil
	}
	var children []json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		// non-group assertions may use "entries" for their own data
		return e, nil, nil
	}
	if !isAssertionList(children) {
		return e, nil, nil
	}
	return e, children, nil
}

func isAssertionList(items []json.RawMessage) bool {
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return false
		}
	}
	return true
}

func decodeString(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	return raw
}

func wrapField(path []string, field string, err error) error {
	return &TreeIntegrityError{Path: path, Reason: fmt.Sprintf("invalid %s", field), Err: err}
}
