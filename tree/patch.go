package tree

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

type patchFrame struct {
	node     *types.Entry
	addr     types.Address
	out      **types.Entry
	children []*types.Entry
	expanded bool
}

// Patch replaces the nodes at the given addresses and re-aggregates the
// replaced subtrees and their ancestors. Everything else is shared with
// root. Replacements nested below another replacement are ignored.
func Patch(root *types.Entry, patches []Located) (*types.Entry, error) {
	if len(patches) == 0 {
		return root, nil
	}
	replaced := make(map[string]*types.Entry, len(patches))
	onPath := make(map[string]struct{})
	for _, p := range patches {
		if _, err := resolvePath(root, p.Address); err != nil {
			return nil, err
		}
		replaced[p.Address.String()] = p.Entry
		for depth := 0; depth < len(p.Address); depth++ {
			onPath[p.Address[:depth].String()] = struct{}{}
		}
	}

	var result *types.Entry
	stack := []patchFrame{{node: root, addr: types.Address{}, out: &result}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		key := f.addr.String()

		if node, ok := replaced[key]; ok {
			stack = stack[:top]
			*f.out = Aggregate(node)
			continue
		}
		if _, ok := onPath[key]; !ok {
			stack = stack[:top]
			*f.out = f.node
			continue
		}
		if !f.expanded {
			children := f.node.Entries.Entries()
			patched := make([]*types.Entry, len(children))
			stack[top].expanded = true
			stack[top].children = patched
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, patchFrame{node: children[i], addr: f.addr.Child(i), out: &patched[i]})
			}
			continue
		}
		stack = stack[:top]
		*f.out = Rollup(f.node.WithEntries(types.Loaded(f.children...)), f.children)
	}
	return result, nil
}
