package types

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// SimpleTagName is the tag name under which unnamed tags are stored
const SimpleTagName = "simple"

// Tags maps a tag name to its sorted, de-duplicated values
type Tags map[string][]string

// Tag is a single tag value with its name
type Tag struct {
	Name  string
	Value string
}

// ParseTag parses "value" as a simple tag and "name=value" as a named tag
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Tag{}, fmt.Errorf("empty tag")
	}
	name, value, named := strings.Cut(s, "=")
	if !named {
		return Tag{Name: SimpleTagName, Value: s}, nil
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if name == "" || value == "" {
		return Tag{}, fmt.Errorf("invalid named tag %q", s)
	}
	return Tag{Name: strings.ReplaceAll(name, "-", "_"), Value: value}, nil
}

// String formats the tag the way ParseTag reads it
func (t Tag) String() string {
	if t.Name == SimpleTagName || t.Name == "" {
		return t.Value
	}
	return t.Name + "=" + t.Value
}

// NewTags builds normalised tags from tag strings
func NewTags(tags ...string) (Tags, error) {
	result := Tags{}
	for _, s := range tags {
		tag, err := ParseTag(s)
		if err != nil {
			return nil, err
		}
		result[tag.Name] = append(result[tag.Name], tag.Value)
	}
	return result.normalize(), nil
}

func (t Tags) normalize() Tags {
	for name, values := range t {
		sorted := slices.Clone(values)
		sort.Strings(sorted)
		t[name] = slices.Compact(sorted)
	}
	return t
}

// Merge returns the union of t and others without modifying any of them
func (t Tags) Merge(others ...Tags) Tags {
	result := Tags{}
	for _, tags := range append([]Tags{t}, others...) {
		for name, values := range tags {
			result[name] = append(result[name], values...)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result.normalize()
}

// Contains reports whether the tag is present
func (t Tags) Contains(tag Tag) bool {
	_, found := slices.BinarySearch(t[tag.Name], tag.Value)
	return found
}

// ContainsAny reports whether at least one of the tags is present
func (t Tags) ContainsAny(tags []Tag) bool {
	for _, tag := range tags {
		if t.Contains(tag) {
			return true
		}
	}
	return false
}

// Strings returns all tags formatted by Tag.String, simple tags first
func (t Tags) Strings() []string {
	var out []string
	for _, v := range t[SimpleTagName] {
		out = append(out, v)
	}
	for _, name := range t.named() {
		for _, v := range t[name] {
			out = append(out, name+"="+v)
		}
	}
	return out
}

// Label returns the tags in command-line form, e.g. "foo bar color=red,blue"
func (t Tags) Label() string {
	var parts []string
	for _, v := range t[SimpleTagName] {
		parts = append(parts, quoteTag(v))
	}
	for _, name := range t.named() {
		values := make([]string, 0, len(t[name]))
		for _, v := range t[name] {
			values = append(values, quoteTag(v))
		}
		parts = append(parts, name+"="+strings.Join(values, ","))
	}
	return strings.Join(parts, " ")
}

func (t Tags) named() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		if name != SimpleTagName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func quoteTag(v string) string {
	if strings.Contains(v, " ") {
		return "'" + v + "'"
	}
	return v
}
