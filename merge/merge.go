// Package merge collapses multitest parts executed as separate shards back
// into one logical multitest.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// mergedNamespace seeds the synthetic uids of merged multitests
var mergedNamespace = uuid.MustParse("6f1f2f7c-2b8e-4c1e-9a57-3c1d0f7f4a21")

// Options controls merging
type Options struct {
	// AllowPartial merges a part set with missing indices into a multitest
	// flagged Partial instead of failing with a MergeConflictError
	AllowPartial bool
}

// Result is a merged report tree and where its testcases came from
type Result struct {
	Root       *types.Entry
	Provenance *Provenance
	// Merged maps each synthetic multitest uid to its part uids in part order
	Merged map[string][]string
}

// Merge merges the multitest parts among the children of root, and below
// each testplan when root is a root entry, then re-indexes and re-aggregates
// the result. root is not modified.
func Merge(root *types.Entry, opts Options) (*Result, error) {
	if root == nil {
		return nil, types.NewTreeIntegrityError(nil, "nil root")
	}
	merged := make(map[string][]string)
	out, err := mergeChildren(root, opts, merged)
	if err != nil {
		return nil, err
	}
	indexed, err := tree.Index(out)
	if err != nil {
		return nil, err
	}
	aggregated := tree.Aggregate(indexed)
	return &Result{
		Root:       aggregated,
		Provenance: ProvenanceOf(aggregated),
		Merged:     merged,
	}, nil
}

// mergeChildren merges the part sets among the children of e and records
// them in merged
func mergeChildren(e *types.Entry, opts Options, merged map[string][]string) (*types.Entry, error) {
	if !e.Entries.IsLoaded() {
		return e, nil
	}
	children := e.Entries.Entries()
	if e.Category == types.CategoryRoot {
		children = append([]*types.Entry(nil), children...)
		for i, child := range children {
			if child == nil || child.Category != types.CategoryTestplan {
				continue
			}
			plan, err := mergeChildren(child, opts, merged)
			if err != nil {
				return nil, err
			}
			children[i] = plan
		}
	}
	siblings, groups, err := Siblings(children, opts)
	if err != nil {
		return nil, err
	}
	for uid, parts := range groups {
		merged[uid] = parts
	}
	return e.WithEntries(types.Loaded(siblings...)), nil
}

type candidate struct {
	entry *types.Entry
	part  types.Part
}

// Siblings merges every set of multitest parts in siblings. A merged
// multitest takes the position of its first part in siblings; other entries
// keep their order. The second result maps merged uids to their part uids.
func Siblings(siblings []*types.Entry, opts Options) ([]*types.Entry, map[string][]string, error) {
	groups := linkedhashmap.New()
	for _, e := range siblings {
		if e == nil || e.Category != types.CategoryMultitest || e.Part == nil {
			continue
		}
		name := types.BaseName(e.Name)
		var parts []candidate
		if v, found := groups.Get(name); found {
			parts = v.([]candidate)
		}
		groups.Put(name, append(parts, candidate{entry: e, part: *e.Part}))
	}
	if groups.Empty() {
		return siblings, map[string][]string{}, nil
	}

	replacement := make(map[*types.Entry]*types.Entry)
	origin := make(map[string][]string, groups.Size())
	it := groups.Iterator()
	for it.Next() {
		name := it.Key().(string)
		parts := it.Value().([]candidate)
		first := parts[0].entry
		merged, partUIDs, err := mergeParts(name, parts, opts)
		if err != nil {
			return nil, nil, err
		}
		origin[merged.UID] = partUIDs
		for _, p := range parts {
			replacement[p.entry] = nil
		}
		replacement[first] = merged
	}

	out := make([]*types.Entry, 0, len(siblings))
	for _, e := range siblings {
		r, replaced := replacement[e]
		switch {
		case !replaced:
			out = append(out, e)
		case r != nil:
			out = append(out, r)
		}
	}
	return out, origin, nil
}

// mergeParts validates one part set and builds the merged multitest
func mergeParts(name string, parts []candidate, opts Options) (*types.Entry, []string, error) {
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].part.Index < parts[j].part.Index })

	total := parts[0].part.Total
	seen := make(map[int]string, len(parts))
	partUIDs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.part.Total != total {
			return nil, nil, types.NewMergeConflictError(name,
				"part %q has total %d, expected %d", p.entry.UID, p.part.Total, total)
		}
		if err := p.part.Validate(); err != nil {
			return nil, nil, types.NewMergeConflictError(name, "part %q: %v", p.entry.UID, err)
		}
		if other, dup := seen[p.part.Index]; dup {
			return nil, nil, types.NewMergeConflictError(name,
				"parts %q and %q both have index %d", other, p.entry.UID, p.part.Index)
		}
		seen[p.part.Index] = p.entry.UID
		partUIDs = append(partUIDs, p.entry.UID)
	}
	partial := len(parts) < total
	if partial && !opts.AllowPartial {
		var missing []string
		for i := 0; i < total; i++ {
			if _, ok := seen[i]; !ok {
				missing = append(missing, fmt.Sprint(i))
			}
		}
		return nil, nil, types.NewMergeConflictError(name,
			"missing part indices %s of %d", strings.Join(missing, ","), total)
	}

	sources := make([]sourced, len(parts))
	for i, p := range parts {
		sources[i] = sourced{entry: p.entry, partUID: p.entry.UID}
	}
	merged, err := unionTree(name, sources)
	if err != nil {
		return nil, nil, err
	}
	merged.UID = syntheticUID(partUIDs)
	merged.Name = name
	merged.Part = nil
	merged.Partial = merged.Partial || partial
	return merged, partUIDs, nil
}

// syntheticUID derives a stable uid for a merged multitest from its parts
func syntheticUID(partUIDs []string) string {
	id := uuid.NewSHA1(mergedNamespace, []byte(strings.Join(partUIDs, "\x00"))).String()
	for _, uid := range partUIDs {
		if uid == id {
			return id + "-merged"
		}
	}
	return id
}
