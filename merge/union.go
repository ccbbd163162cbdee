package merge

import (
	"strconv"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/ethereum-optimism/infra/reportree/types"
)

// sourced is an entry of one part together with the uid of that part
type sourced struct {
	entry   *types.Entry
	partUID string
}

// unionSlot is one child of a merged node: either a group assembled from
// same-uid groups of several parts or a single testcase
type unionSlot struct {
	category types.Category
	sources  []sourced
	leaf     *types.Entry
}

type unionFrame struct {
	sources []sourced
	out     **types.Entry
}

// unionTree merges same-uid group entries of several parts, in part order.
// Testcases are concatenated rather than deduplicated since their uids are
// only unique within one part.
func unionTree(name string, sources []sourced) (*types.Entry, error) {
	var root *types.Entry
	stack := []unionFrame{{sources: sources, out: &root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, children, err := unionNode(name, f.sources)
		if err != nil {
			return nil, err
		}
		*f.out = node
		if children == nil {
			continue
		}
		slots := make([]*types.Entry, len(children))
		node.Entries = types.Loaded(slots...)
		for i := len(children) - 1; i >= 0; i-- {
			if children[i].leaf != nil {
				slots[i] = children[i].leaf
				continue
			}
			stack = append(stack, unionFrame{sources: children[i].sources, out: &slots[i]})
		}
	}
	return root, nil
}

// unionNode builds the merged copy of one group and returns the slots of its
// children, nil when the children are not all loaded
func unionNode(name string, sources []sourced) (*types.Entry, []*unionSlot, error) {
	node := sources[0].entry.Clone()
	node.Address = nil
	if len(sources) > 1 {
		node.RawStatus = ""
		counter := types.Counter{}
		statuses := make([]types.Status, 0, len(sources))
		tags := make([]types.Tags, 0, len(sources))
		for _, s := range sources {
			counter = counter.Add(s.entry.Counter)
			statuses = append(statuses, s.entry.Status)
			tags = append(tags, s.entry.Tags)
		}
		node.Counter = counter
		node.Status = types.Precedent(statuses...)
		node.Tags = types.Tags(nil).Merge(tags...)
	}

	// parts with pending children add their counter; the loaded parts
	// still contribute their children
	var (
		loaded   = make([]sourced, 0, len(sources))
		unloaded types.Counter
	)
	for _, s := range sources {
		switch s.entry.Entries.State() {
		case types.StateFailed:
			node.Entries = types.FailedLoad(s.entry.Entries.Err())
			return node, nil, nil
		case types.StatePending:
			unloaded = unloaded.Add(s.entry.Counter)
		default:
			unloaded = unloaded.Add(s.entry.Unloaded)
			loaded = append(loaded, s)
		}
	}
	if len(loaded) == 0 {
		node.Entries = types.Pending()
		return node, nil, nil
	}
	if len(loaded) < len(sources) {
		node.Partial = true
	}
	node.Unloaded = unloaded

	slots := linkedhashmap.New()
	categories := make(map[string]types.Category)
	leaves := 0
	for _, s := range loaded {
		for _, child := range s.entry.Entries.Entries() {
			if child == nil {
				continue
			}
			if known, ok := categories[child.UID]; ok && known != child.Category &&
				(known.IsGroup() || child.Category.IsGroup()) {
				return nil, nil, types.NewMergeConflictError(name,
					"uid %q is a %s in one part and a %s in another", child.UID, known, child.Category)
			}
			categories[child.UID] = child.Category

			if !child.Category.IsGroup() {
				slots.Put("leaf:"+strconv.Itoa(leaves), &unionSlot{category: child.Category, leaf: stamp(child, s.partUID)})
				leaves++
				continue
			}
			key := "group:" + child.UID
			if v, found := slots.Get(key); found {
				slot := v.(*unionSlot)
				slot.sources = append(slot.sources, sourced{entry: child, partUID: s.partUID})
				continue
			}
			slots.Put(key, &unionSlot{category: child.Category, sources: []sourced{{entry: child, partUID: s.partUID}}})
		}
	}

	children := make([]*unionSlot, 0, slots.Size())
	for _, v := range slots.Values() {
		children = append(children, v.(*unionSlot))
	}
	return node, children, nil
}

// stamp records the source part on a testcase
func stamp(e *types.Entry, partUID string) *types.Entry {
	if e.Category != types.CategoryTestcase || e.SourcePart != "" {
		return e
	}
	c := e.Clone()
	c.SourcePart = partUID
	c.Address = nil
	return c
}
