package extract

import (
	"strings"

	"github.com/civicledger/budgetmap/pkg/document"
)

// OrgLevels are the hierarchy labels assigned to indentation clusters, from
// the leftmost inwards.
var OrgLevels = []string{"A", "1", "2", "3"}

// orgBandHalfWidth is the half width of each level band around its cluster
// median.
const orgBandHalfWidth = 10.0

// OrgEntry is one coded line of an organization structure listing. Agency is
// the nearest enclosing agency-level entry, empty for an agency itself.
type OrgEntry struct {
	Level  string  `json:"level" yaml:"level"`
	Code   string  `json:"code" yaml:"code"`
	Name   string  `json:"name" yaml:"name"`
	X      float64 `json:"x" yaml:"x"`
	Page   int     `json:"page" yaml:"page"`
	Parent string  `json:"parent,omitempty" yaml:"parent,omitempty"`
	Agency string  `json:"agency,omitempty" yaml:"agency,omitempty"`
}

// ExtractOrgStructure classifies every "<4-digit code> <name>" entry of doc
// into a hierarchy level by its indentation. The name may be the token after
// a bare code. Entries keep document order and Parent names the nearest
// preceding entry of a shallower level.
func ExtractOrgStructure(doc *document.Document, opts Options) []OrgEntry {
	var entries []OrgEntry
	var xs []float64
	for i := 0; i < len(doc.Tokens); i++ {
		tok := doc.Tokens[i]
		code, name, ok := document.ParseHeader(tok.Text)
		if !ok && i+1 < len(doc.Tokens) {
			// A bare code whose name is the next token on the page.
			next := doc.Tokens[i+1]
			if next.Page == tok.Page && isNameText(next.Text) {
				if code, name, ok = document.ParseHeader(tok.Text + " " + next.Text); ok {
					i++
				}
			}
		}
		if !ok {
			continue
		}
		entries = append(entries, OrgEntry{Code: code, Name: name, X: tok.X, Page: tok.Page})
		xs = append(xs, tok.X)
	}
	if len(entries) == 0 {
		return nil
	}

	bands := Bands(ClusterPositions(xs, opts.ClusterGap), OrgLevels, orgBandHalfWidth)
	depth := make(map[string]int, len(OrgLevels))
	for i, l := range OrgLevels {
		depth[l] = i
	}

	// stack[d] is the latest entry seen at depth d.
	stack := make([]*OrgEntry, len(OrgLevels))
	for i := range entries {
		e := &entries[i]
		e.Level = Assign(bands, e.X)
		d := depth[e.Level]
		for p := d - 1; p >= 0; p-- {
			if stack[p] != nil {
				e.Parent = stack[p].Name
				break
			}
		}
		if !IsAgencyLevel(e.Level) && stack[0] != nil {
			e.Agency = stack[0].Name
		}
		stack[d] = e
		for deeper := d + 1; deeper < len(stack); deeper++ {
			stack[deeper] = nil
		}
	}
	return entries
}

// IsAgencyLevel reports whether level is the top of the hierarchy.
func IsAgencyLevel(level string) bool {
	return strings.EqualFold(level, OrgLevels[0])
}
