package filter

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ethereum-optimism/infra/reportree/types"
)

// statusFlags maps the single-letter status flags onto wire statuses
var statusFlags = map[rune]string{
	'E': "error",
	'F': "failed",
	'I': "incomplete",
	'P': "passed",
	'S': "skipped",
	'U': "unstable",
	'X': "unknown",
	'A': "xfail",
	'B': "xpass",
	'C': "xpass_strict",
}

// StatusFilter keeps or drops testcases by their status
type StatusFilter struct {
	Include  bool
	statuses map[string]struct{}
}

// ParseStatusFilter parses flags such as "EF" (keep errored and failed
// testcases) or "ps" (drop passed and skipped ones). Upper and lower case
// cannot be mixed.
func ParseStatusFilter(flags string) (*StatusFilter, error) {
	flags = strings.TrimSpace(flags)
	if flags == "" {
		return nil, fmt.Errorf("empty status filter")
	}
	include := unicode.IsUpper(rune(flags[0]))
	f := &StatusFilter{Include: include, statuses: make(map[string]struct{})}
	for _, r := range flags {
		if unicode.IsUpper(r) != include {
			return nil, fmt.Errorf("invalid status filter %q: use either upper or lower case letters", flags)
		}
		status, ok := statusFlags[unicode.ToUpper(r)]
		if !ok {
			return nil, fmt.Errorf("invalid status filter %q: unknown flag %q", flags, r)
		}
		f.statuses[status] = struct{}{}
	}
	return f, nil
}

// ByStatus returns a filter including testcases with one of the statuses
func ByStatus(statuses ...types.Status) *StatusFilter {
	f := &StatusFilter{Include: true, statuses: make(map[string]struct{})}
	for _, s := range statuses {
		f.statuses[string(s)] = struct{}{}
	}
	return f
}

// Statuses returns the wire statuses the filter refers to, sorted
func (f *StatusFilter) Statuses() []string {
	out := make([]string, 0, len(f.statuses))
	for s := range f.statuses {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Match reports whether the testcase e passes the filter. Other categories
// never match on their own.
func (f *StatusFilter) Match(e *types.Entry) bool {
	if !e.Category.IsBottommost() {
		return false
	}
	_, listed := f.statuses[wireStatus(e)]
	return listed == f.Include
}

// Apply keeps the matching testcases and their ancestors
func (f *StatusFilter) Apply(root *types.Entry) *types.Entry {
	return Prune(root, f.Match)
}

func wireStatus(e *types.Entry) string {
	s := e.RawStatus
	if s == "" {
		s = string(e.Status.Resolved())
	}
	return strings.ReplaceAll(strings.ToLower(s), "-", "_")
}
