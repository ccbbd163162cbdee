package attachments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// keySeparator joins the uids between a multitest and one of its testcases
const keySeparator = "::"

// Keys returns the attachment key of every testcase in root by address.
// The key is the uid path below the enclosing multitest, so a testcase
// has the same key in a part and in the merged multitest built from it.
func Keys(root *types.Entry) map[string]string {
	keys := make(map[string]string)
	prefix := make(map[string][]string)
	tree.Walk(root, func(e *types.Entry, addr types.Address) bool {
		var uids []string
		if len(addr) > 0 && e.Category != types.CategoryMultitest {
			parent := prefix[addr[:len(addr)-1].String()]
			uids = append(append(make([]string, 0, len(parent)+1), parent...), e.UID)
		}
		if e.Category.IsBottommost() {
			keys[addr.String()] = strings.Join(uids, keySeparator)
			return false
		}
		prefix[addr.String()] = uids
		return true
	})
	return keys
}

// Split moves the assertions of every testcase that belongs to a part out
// of the tree. It returns the tree with those testcases marked pending and
// the removed assertions grouped by part uid.
func Split(root *types.Entry) (*types.Entry, map[string]Assertions, error) {
	prov := merge.ProvenanceOf(root)
	keys := Keys(root)
	byPart := make(map[string]Assertions)

	located := tree.Find(root, func(e *types.Entry) bool {
		return e.Category.IsBottommost() && e.Entries.IsLoaded()
	})
	patches := make([]tree.Located, 0, len(located))
	for _, loc := range located {
		part, ok := prov.PartAt(loc.Address)
		if !ok {
			continue
		}
		key := keys[loc.Address.String()]
		if _, ok := byPart[part]; !ok {
			byPart[part] = make(Assertions)
		}
		if _, dup := byPart[part][key]; dup {
			return nil, nil, types.NewTreeIntegrityError([]string{part, key}, "duplicate testcase")
		}
		children := loc.Entry.Entries.Entries()
		items := make([]json.RawMessage, len(children))
		for i, child := range children {
			raw, err := json.Marshal(child)
			if err != nil {
				return nil, nil, fmt.Errorf("encoding assertion %d of %s: %w", i, key, err)
			}
			items[i] = raw
		}
		byPart[part][key] = items
		patches = append(patches, tree.Located{
			Entry:   loc.Entry.WithEntries(types.Pending()),
			Address: loc.Address,
		})
	}

	out, err := tree.Patch(root, patches)
	if err != nil {
		return nil, nil, err
	}
	return out, byPart, nil
}

// Fill loads assertions into the pending testcases of root. Testcases whose
// part is absent from byPart stay pending, or fail the call when strict is
// set. A testcase missing from its part's attachment has no assertions.
func Fill(root *types.Entry, byPart map[string]Assertions, strict bool) (*types.Entry, error) {
	prov := merge.ProvenanceOf(root)
	keys := Keys(root)

	var patches []tree.Located
	for _, loc := range pendingTestcases(root) {
		part, ok := prov.PartAt(loc.Address)
		if !ok {
			continue
		}
		assertions, ok := byPart[part]
		if !ok {
			if strict {
				return nil, fmt.Errorf("no assertions for part %q: %w", part, ErrNotFound)
			}
			continue
		}
		key := keys[loc.Address.String()]
		filled, err := load(loc, assertions[key])
		if err != nil {
			return nil, err
		}
		patches = append(patches, tree.Located{Entry: filled, Address: loc.Address})
	}
	return tree.Patch(root, patches)
}

func pendingTestcases(root *types.Entry) []tree.Located {
	return tree.Find(root, func(e *types.Entry) bool {
		return e.Category.IsBottommost() && !e.Entries.IsLoaded()
	})
}

// load decodes the assertions of one testcase and addresses them below it
func load(loc tree.Located, items []json.RawMessage) (*types.Entry, error) {
	entries, err := types.DecodeAssertions(items)
	if err != nil {
		return nil, fmt.Errorf("assertions of %s: %w", loc.Entry.UID, err)
	}
	filled := loc.Entry.WithEntries(types.Loaded(entries...))
	tree.Walk(filled, func(e *types.Entry, rel types.Address) bool {
		if len(rel) > 0 {
			e.Address = append(append(make(types.Address, 0, len(loc.Address)+len(rel)), loc.Address...), rel...)
		}
		return true
	})
	return filled, nil
}
