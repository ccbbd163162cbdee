package tree

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

// TagIndex returns, keyed by address string, the tags each node carries
// either itself or through its ancestors. The root entry additionally
// collects the tags of the whole tree, which is what a tag picker lists.
func TagIndex(root *types.Entry) map[string]types.Tags {
	index := make(map[string]types.Tags)
	if root == nil {
		return index
	}
	all := root.Tags
	Walk(root, func(e *types.Entry, addr types.Address) bool {
		if e.IsAssertion() {
			return false
		}
		inherited := e.Tags
		if len(addr) > 0 {
			inherited = index[addr[:len(addr)-1].String()].Merge(e.Tags)
			all = all.Merge(e.Tags)
		}
		index[addr.String()] = inherited
		return true
	})
	index[types.Address{}.String()] = all
	return index
}
