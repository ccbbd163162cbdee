package tree

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

type diffPair struct {
	old, new *types.Entry
	addr     types.Address
}

// Diff returns the addresses of nodes that differ between two snapshots of
// the same report: a changed uid, status, counter or load state. A node whose
// uid or category changed is reported once and not descended into. Addresses
// only present on one side are reported as well.
func Diff(old, new *types.Entry) []types.Address {
	var changed []types.Address
	stack := []diffPair{{old: old, new: new, addr: types.Address{}}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.old == p.new {
			continue
		}
		if p.old == nil || p.new == nil || p.old.UID != p.new.UID || p.old.Category != p.new.Category {
			changed = append(changed, p.addr)
			continue
		}
		if p.old.Status != p.new.Status || p.old.Counter != p.new.Counter ||
			p.old.Entries.State() != p.new.Entries.State() || p.old.Entries.Len() != p.new.Entries.Len() {
			changed = append(changed, p.addr)
		}
		oldChildren, newChildren := p.old.Entries.Entries(), p.new.Entries.Entries()
		n := max(len(oldChildren), len(newChildren))
		for i := n - 1; i >= 0; i-- {
			var o, c *types.Entry
			if i < len(oldChildren) {
				o = oldChildren[i]
			}
			if i < len(newChildren) {
				c = newChildren[i]
			}
			stack = append(stack, diffPair{old: o, new: c, addr: p.addr.Child(i)})
		}
	}
	return changed
}
