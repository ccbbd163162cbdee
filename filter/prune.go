// Package filter derives pruned views of a report tree for search queries.
//
// A derived tree never replaces the canonical one: counters and statuses
// are copied from the canonical nodes, so a filtered suite still reports
// the totals of everything it contains.
package filter

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

type pruneFrame struct {
	node     *types.Entry
	out      **types.Entry
	kept     []*types.Entry
	expanded bool
}

// Prune keeps every node accepted by match together with its ancestors.
// The root is always kept. Testcases are leaves for matching purposes:
// their assertions are never inspected or pruned.
func Prune(root *types.Entry, match func(*types.Entry) bool) *types.Entry {
	if root == nil {
		return nil
	}
	var result *types.Entry
	stack := []pruneFrame{{node: root, out: &result}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		if !f.expanded && expandable(f.node) {
			children := f.node.Entries.Entries()
			kept := make([]*types.Entry, len(children))
			stack[top].expanded = true
			stack[top].kept = kept
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, pruneFrame{node: children[i], out: &kept[i]})
			}
			continue
		}
		stack = stack[:top]
		*f.out = pruneNode(f.node, f.kept, match, f.node == root)
	}
	return result
}

func expandable(e *types.Entry) bool {
	return e.Category.IsGroup() && e.Entries.Len() > 0
}

// pruneNode returns the derived copy of e, or nil when neither e nor any of
// its descendants matched. kept holds the derived children, nil for dropped.
func pruneNode(e *types.Entry, kept []*types.Entry, match func(*types.Entry) bool, isRoot bool) *types.Entry {
	if e == nil {
		return nil
	}
	if !expandable(e) {
		if isRoot || match(e) {
			return e
		}
		return nil
	}

	children := e.Entries.Entries()
	survivors := make([]*types.Entry, 0, len(kept))
	unchanged := true
	for i, k := range kept {
		if k == nil {
			unchanged = false
			continue
		}
		if k != children[i] {
			unchanged = false
		}
		survivors = append(survivors, k)
	}
	if len(survivors) == 0 && !isRoot && !match(e) {
		return nil
	}
	if unchanged {
		return e
	}
	return e.WithEntries(types.Loaded(survivors...))
}
