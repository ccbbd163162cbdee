package types

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the entry in report document form.
// Assertion entries encode as their raw payload. Pending children encode
// as null, failed ones as null plus a load_error message.
func (e *Entry) MarshalJSON() ([]byte, error) {
	if e.IsAssertion() && len(e.Payload) > 0 {
		return e.Payload, nil
	}
	out := make(map[string]any, len(e.Extra)+16)
	for key, raw := range e.Extra {
		out[key] = raw
	}
	out["category"] = e.WireCategory()
	out["uid"] = e.UID
	out["name"] = e.Name
	if status := e.WireStatus(); status != "" {
		out["status"] = status
	}
	out["counter"] = e.Counter
	switch e.Entries.State() {
	case StateLoaded:
		entries := e.Entries.Entries()
		if entries == nil {
			entries = []*Entry{}
		}
		out["entries"] = entries
	case StatePending:
		out["entries"] = nil
	case StateFailed:
		out["entries"] = nil
		if err := e.Entries.Err(); err != nil {
			out["load_error"] = err.Error()
		}
	}
	if e.Part != nil {
		out["part"] = e.Part
	}
	if len(e.Tags) > 0 {
		out["tags"] = e.Tags
	}
	if e.Description != "" {
		out["description"] = e.Description
	}
	if len(e.Logs) > 0 {
		out["logs"] = e.Logs
	}
	if len(e.Timer) > 0 {
		out["timer"] = e.Timer
	}
	if e.ResourceMetaPath != "" {
		out["resource_meta_path"] = e.ResourceMetaPath
	}
	if e.Address != nil {
		out["address"] = e.Address
	}
	if e.SourcePart != "" {
		out["source_part"] = e.SourcePart
	}
	if e.Partial {
		out["partial"] = true
	}
	if !e.Unloaded.IsZero() {
		out["unloaded_counter"] = e.Unloaded
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s entry %q: %w", e.Category, e.UID, err)
	}
	return data, nil
}

// EncodeReport encodes a report tree, indented when indent is true
func EncodeReport(root *Entry, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(root, "", "  ")
	}
	return json.Marshal(root)
}
