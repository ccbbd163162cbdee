package tree

import (
	"github.com/ethereum-optimism/infra/reportree/types"
)

type aggregateFrame struct {
	node     *types.Entry
	out      **types.Entry
	children []*types.Entry
	expanded bool
}

// Aggregate recomputes counter and status of every node bottom-up.
// It is idempotent, and nodes whose values do not change are shared
// with the input rather than copied.
func Aggregate(root *types.Entry) *types.Entry {
	if root == nil {
		return nil
	}
	var result *types.Entry
	stack := []aggregateFrame{{node: root, out: &result}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		if !f.expanded && descends(f.node) {
			children := f.node.Entries.Entries()
			rolled := make([]*types.Entry, len(children))
			stack[top].expanded = true
			stack[top].children = rolled
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, aggregateFrame{node: children[i], out: &rolled[i]})
			}
			continue
		}
		stack = stack[:top]
		*f.out = Rollup(f.node, f.children)
	}
	return result
}

// AggregatePath re-aggregates the subtree at addr and then every ancestor
// on the way back to the root. Use it after a single node was loaded.
func AggregatePath(root *types.Entry, addr types.Address) (*types.Entry, error) {
	path, err := resolvePath(root, addr)
	if err != nil {
		return nil, err
	}
	node := Aggregate(path[len(path)-1])
	return rebuildPath(path, addr, node, func(e *types.Entry) *types.Entry {
		return Rollup(e, e.Entries.Entries())
	}), nil
}

// descends reports whether aggregation needs the rolled-up children of e
func descends(e *types.Entry) bool {
	return e.Category.IsGroup() && e.Entries.IsLoaded() && e.Entries.Len() > 0
}

// Rollup computes counter and status of e given its already aggregated
// children. It returns e itself when nothing changes.
func Rollup(e *types.Entry, children []*types.Entry) *types.Entry {
	if e == nil || e.IsAssertion() {
		return e
	}
	var (
		counter types.Counter
		status  types.Status
		derived bool
	)
	switch {
	case e.Category.IsBottommost():
		status, derived = testcaseStatus(e)
		counter = types.LeafCounter(status, e.RawStatus)
	case !e.Entries.IsLoaded():
		counter = e.Counter
		status = types.Precedent(e.Status, types.StatusIncomplete)
	case len(children) == 0:
		status = e.Status.Resolved()
	default:
		statuses := make([]types.Status, 0, len(children))
		for _, child := range children {
			counter = counter.Add(child.Counter)
			statuses = append(statuses, child.Status.Resolved())
		}
		status = types.Precedent(statuses...)
	}
	if !e.Unloaded.IsZero() && e.Entries.IsLoaded() {
		counter = counter.Add(e.Unloaded)
		status = types.Precedent(status, e.Unloaded.Status())
	}
	if e.Partial {
		status = types.Precedent(status, types.StatusIncomplete)
	}

	if counter == e.Counter && status == e.Status && derived == e.StatusDerived && sameChildren(e, children) {
		return e
	}
	out := e.Clone()
	out.Counter = counter
	out.Status = status
	out.StatusDerived = derived
	if out.RawStatus != "" {
		if parsed, _ := types.ParseStatus(out.RawStatus); parsed != status {
			out.RawStatus = ""
		}
	}
	if descends(e) {
		out.Entries = types.Loaded(children...)
	}
	return out
}

func sameChildren(e *types.Entry, children []*types.Entry) bool {
	if !descends(e) {
		return true
	}
	current := e.Entries.Entries()
	if len(current) != len(children) {
		return false
	}
	for i := range current {
		if current[i] != children[i] {
			return false
		}
	}
	return true
}

// testcaseStatus returns the recorded status of a testcase. A testcase
// without one takes the outcome of its loaded assertions, and the second
// result is true. A derived status stands while the assertions are unloaded.
func testcaseStatus(tc *types.Entry) (types.Status, bool) {
	if tc.Status != types.StatusNone && (!tc.StatusDerived || !tc.Entries.IsLoaded()) {
		return tc.Status, tc.StatusDerived
	}
	derived := types.StatusNone
	stack := append([]*types.Entry(nil), tc.Entries.Entries()...)
	for len(stack) > 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if a == nil {
			continue
		}
		switch a.Status {
		case types.StatusFailed, types.StatusError:
			derived = types.StatusFailed
		case types.StatusPassed:
			derived = types.Precedent(derived, types.StatusPassed)
		}
		stack = append(stack, a.Entries.Entries()...)
	}
	return derived.Resolved(), true
}
