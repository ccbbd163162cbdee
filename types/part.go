package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Part identifies one shard of a multitest split for parallel execution
type Part struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

var partSuffix = regexp.MustCompile(`^(.*) - part\((\d+)/(\d+)\)$`)

// Validate checks 0 <= index < total
func (p Part) Validate() error {
	if p.Total < 1 {
		return fmt.Errorf("part total must be positive, got %d", p.Total)
	}
	if p.Index < 0 || p.Index >= p.Total {
		return fmt.Errorf("part index %d out of range 0..%d", p.Index, p.Total-1)
	}
	return nil
}

func (p Part) String() string {
	return fmt.Sprintf("part(%d/%d)", p.Index, p.Total)
}

// FormatPartName appends the part suffix to a base name
func FormatPartName(base string, p Part) string {
	return fmt.Sprintf("%s - part(%d/%d)", base, p.Index, p.Total)
}

// ParsePartName splits a shard name into its base name and part.
// ok is false when the name carries no part suffix.
func ParsePartName(name string) (base string, p Part, ok bool) {
	m := partSuffix.FindStringSubmatch(name)
	if m == nil {
		return name, Part{}, false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return name, Part{}, false
	}
	total, err := strconv.Atoi(m[3])
	if err != nil {
		return name, Part{}, false
	}
	return m[1], Part{Index: index, Total: total}, true
}

// BaseName returns name without its part suffix
func BaseName(name string) string {
	base, _, _ := ParsePartName(name)
	return base
}

// MarshalJSON writes the [index, total] pair used by report documents
func (p Part) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Index, p.Total})
}

// UnmarshalJSON accepts both [index, total] and {"index": i, "total": n}
func (p *Part) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("part must have 2 elements, got %d", len(pair))
		}
		p.Index, p.Total = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Index int `json:"index"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid part: %w", err)
	}
	p.Index, p.Total = obj.Index, obj.Total
	return nil
}
