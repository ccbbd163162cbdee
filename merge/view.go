package merge

import (
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// View holds a report both unmerged and merged so the presentation can
// switch between the two without refetching. The merged tree is built on
// first use. A View is not safe for concurrent use.
type View struct {
	opts       Options
	unmerged   *types.Entry
	unmergedPv *Provenance
	merged     *Result
	showMerged bool
}

// NewView indexes and aggregates root and starts in the unmerged state
func NewView(root *types.Entry, opts Options) (*View, error) {
	indexed, err := tree.Index(root)
	if err != nil {
		return nil, err
	}
	aggregated := tree.Aggregate(indexed)
	return &View{
		opts:       opts,
		unmerged:   aggregated,
		unmergedPv: ProvenanceOf(aggregated),
	}, nil
}

// SetMerged switches between the merged and unmerged tree. When merging
// fails the view stays unmerged and the error is returned.
func (v *View) SetMerged(merged bool) error {
	if !merged {
		v.showMerged = false
		return nil
	}
	if v.merged == nil {
		result, err := Merge(v.unmerged, v.opts)
		if err != nil {
			v.showMerged = false
			return err
		}
		v.merged = result
	}
	v.showMerged = true
	return nil
}

// Toggle flips between the merged and unmerged tree
func (v *View) Toggle() error {
	return v.SetMerged(!v.showMerged)
}

// IsMerged reports whether the merged tree is shown
func (v *View) IsMerged() bool {
	return v.showMerged
}

// Root returns the tree currently shown
func (v *View) Root() *types.Entry {
	if v.showMerged {
		return v.merged.Root
	}
	return v.unmerged
}

// Unmerged returns the original tree, indexed and aggregated
func (v *View) Unmerged() *types.Entry {
	return v.unmerged
}

// Provenance returns the part lookup of the tree currently shown
func (v *View) Provenance() *Provenance {
	if v.showMerged {
		return v.merged.Provenance
	}
	return v.unmergedPv
}

// Update replaces the tree currently shown, e.g. after assertions were
// loaded into it. Provenance is unaffected since loading never moves
// testcases between parts.
func (v *View) Update(root *types.Entry) {
	if v.showMerged {
		v.merged.Root = root
		return
	}
	v.unmerged = root
}
