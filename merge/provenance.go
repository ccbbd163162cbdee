package merge

import (
	"encoding/json"

	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// AttachmentPrefix prefixes the part uid in assertion attachment names
const AttachmentPrefix = "assertions_"

// AttachmentName returns the name of the assertions attachment of a part
func AttachmentName(partUID string) string {
	return AttachmentPrefix + partUID
}

// Provenance tells which part a testcase came from, which is what selects
// the assertions attachment to fetch for it.
type Provenance struct {
	byUID     map[string]string
	byAddress map[string]string
}

// ProvenanceOf collects the part of every testcase in root. Testcases of a
// merged multitest use their recorded source part; all others use the uid
// of their enclosing multitest.
func ProvenanceOf(root *types.Entry) *Provenance {
	p := &Provenance{
		byUID:     make(map[string]string),
		byAddress: make(map[string]string),
	}
	enclosing := make(map[string]string)
	tree.Walk(root, func(e *types.Entry, addr types.Address) bool {
		part := ""
		if len(addr) > 0 {
			part = enclosing[addr[:len(addr)-1].String()]
		}
		if e.Category == types.CategoryMultitest {
			part = e.UID
		}
		if !e.Category.IsBottommost() {
			enclosing[addr.String()] = part
			return true
		}
		if e.SourcePart != "" {
			part = e.SourcePart
		}
		if part == "" {
			return false
		}
		if _, ok := p.byUID[e.UID]; !ok {
			p.byUID[e.UID] = part
		}
		p.byAddress[addr.String()] = part
		return false
	})
	return p
}

// Part returns the source part uid of a testcase. Testcase uids may repeat
// across parts of a merged multitest; the first one in walk order wins,
// PartAt resolves such cases exactly.
func (p *Provenance) Part(testcaseUID string) (string, bool) {
	part, ok := p.byUID[testcaseUID]
	return part, ok
}

// PartAt returns the source part uid of the testcase at addr
func (p *Provenance) PartAt(addr types.Address) (string, bool) {
	part, ok := p.byAddress[addr.String()]
	return part, ok
}

// Parts returns the distinct part uids, in no particular order
func (p *Provenance) Parts() []string {
	seen := make(map[string]struct{})
	var parts []string
	for _, part := range p.byAddress {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		parts = append(parts, part)
	}
	return parts
}

// Len returns the number of testcases with a known part
func (p *Provenance) Len() int {
	return len(p.byAddress)
}

// MarshalJSON encodes both lookups
func (p *Provenance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Testcases map[string]string `json:"testcases"`
		Addresses map[string]string `json:"addresses"`
	}{p.byUID, p.byAddress})
}
