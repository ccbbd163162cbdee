package tree

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

type indexFrame struct {
	node *types.Entry
	out  **types.Entry
	addr types.Address
	path []string
}

// Index returns a copy of root in which every node carries its address.
// Counters and statuses are left untouched; pending children stay pending.
func Index(root *types.Entry) (*types.Entry, error) {
	if root == nil {
		return nil, types.NewTreeIntegrityError(nil, "nil root")
	}
	var result *types.Entry
	stack := []indexFrame{{node: root, out: &result, addr: types.Address{}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path := append(append([]string(nil), f.path...), f.node.UID)
		if !f.node.Category.IsValid() {
			return nil, types.NewTreeIntegrityError(path, "unknown category %q", f.node.Category)
		}
		node := f.node.Clone()
		node.Address = f.addr
		*f.out = node

		if !node.Entries.IsLoaded() {
			continue
		}
		children := node.Entries.Entries()
		indexed := make([]*types.Entry, len(children))
		node.Entries = types.Loaded(indexed...)
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			if child == nil {
				return nil, types.NewTreeIntegrityError(path, "nil child at index %d", i)
			}
			if !node.Category.CanContain(child.Category) {
				return nil, types.NewTreeIntegrityError(append(path, child.UID),
					"%s entry cannot contain %s entry", node.Category, child.Category)
			}
			stack = append(stack, indexFrame{node: child, out: &indexed[i], addr: f.addr.Child(i), path: path})
		}
	}
	return result, nil
}
