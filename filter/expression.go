package filter

import (
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// Expression is a search query as produced by a search box and tag picker.
// A nil or empty field does not constrain the result.
type Expression struct {
	Text *string  `json:"text"`
	Tags []string `json:"tags"`
}

// Text returns an expression matching names that contain s
func Text(s string) Expression {
	return Expression{Text: &s}
}

// IsEmpty reports whether the expression matches everything
func (x Expression) IsEmpty() bool {
	return (x.Text == nil || strings.TrimSpace(*x.Text) == "") && len(x.Tags) == 0
}

// Matcher is a compiled Expression
type Matcher struct {
	text string
	tags []types.Tag
}

// Compile validates the tags of x and prepares it for matching
func Compile(x Expression) (*Matcher, error) {
	m := &Matcher{}
	if x.Text != nil {
		m.text = strings.ToLower(strings.TrimSpace(*x.Text))
	}
	for _, s := range x.Tags {
		tag, err := types.ParseTag(s)
		if err != nil {
			return nil, fmt.Errorf("invalid tag filter: %w", err)
		}
		m.tags = append(m.tags, tag)
	}
	return m, nil
}

// Match reports whether e matches every clause of the expression: its name
// contains the text, ignoring case, and its own tags include any queried tag
func (m *Matcher) Match(e *types.Entry) bool {
	return m.match(e, e.Tags)
}

func (m *Matcher) match(e *types.Entry, tags types.Tags) bool {
	if m.text != "" && !strings.Contains(strings.ToLower(e.Name), m.text) {
		return false
	}
	if len(m.tags) > 0 && !tags.ContainsAny(m.tags) {
		return false
	}
	return true
}

// Apply returns the derived tree of the matches and their ancestors. Tags
// match against what a node carries itself or inherits from its ancestors,
// so a tagged multitest matches all of its testcases.
// An empty expression returns root itself.
func (m *Matcher) Apply(root *types.Entry) *types.Entry {
	if m.text == "" && len(m.tags) == 0 {
		return root
	}
	if len(m.tags) == 0 {
		return Prune(root, m.Match)
	}
	inherited := inheritedTags(root)
	return Prune(root, func(e *types.Entry) bool {
		return m.match(e, inherited[e])
	})
}

// inheritedTags maps every node of root to its own tags merged with those
// of its ancestors
func inheritedTags(root *types.Entry) map[*types.Entry]types.Tags {
	index := tree.TagIndex(root)
	out := make(map[*types.Entry]types.Tags, len(index))
	tree.Walk(root, func(e *types.Entry, addr types.Address) bool {
		if e.IsAssertion() {
			return false
		}
		if len(addr) == 0 {
			// the root key of the index lists the tags of the whole tree
			out[e] = e.Tags
			return true
		}
		out[e] = index[addr.String()]
		return true
	})
	return out
}

// Apply compiles x and applies it to root
func Apply(root *types.Entry, x Expression) (*types.Entry, error) {
	m, err := Compile(x)
	if err != nil {
		return nil, err
	}
	return m.Apply(root), nil
}
