package extract

import (
	"context"
	"math"
	"strings"

	"github.com/civicledger/budgetmap/internal/matcher"
	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
)

var (
	descriptionsMarker = matcher.MustNew(matcher.Regex, `program\s+descriptions`, ci)
	programCode        = matcher.MustNew(matcher.Regex, `^(\d{7}|\d{4})(?:\s+(.*))?$`)
)

// NormalizeProjectCode pads 4-digit program codes to the 7-digit form.
func NormalizeProjectCode(code string) string {
	if len(code) == 4 {
		return code + "000"
	}
	return code
}

// ExtractDescriptions reads the PROGRAM DESCRIPTIONS block of sec. A section
// without the block has no descriptions.
func ExtractDescriptions(ctx context.Context, doc *document.Document, sec document.Section, opts Options) []registry.Program {
	start := -1
	for i := sec.Start; i < sec.End; i++ {
		if descriptionsMarker.Match(doc.Text(i)) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}
	end := sec.End
	for i := start; i < sec.End; i++ {
		if detailedMarker.Match(doc.Text(i)) {
			end = i
			break
		}
	}
	region := doc.Slice(start, end)

	column := math.Inf(1)
	for _, tok := range region {
		if programCode.Match(tok.Text) {
			column = math.Min(column, tok.X)
		}
	}
	if math.IsInf(column, 1) {
		return nil
	}

	var (
		programs []registry.Program
		current  *registry.Program
		body     []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.Join(body, "\n")
		programs = append(programs, *current)
		current, body = nil, nil
	}

	for i := 0; i < len(region); i++ {
		tok := region[i]
		if _, _, ok := document.ParseContinuation(tok.Text); ok {
			continue
		}
		atColumn := math.Abs(tok.X-column) <= opts.HeaderTolerance

		if atColumn {
			m := programCode.Submatch(tok.Text)
			if m == nil {
				continue
			}
			flush()
			current = &registry.Program{
				ProjectCode: NormalizeProjectCode(m[1]),
				Name:        strings.TrimSpace(m[2]),
				SourceFile:  doc.Name,
			}
			if current.Name == "" && i+1 < len(region) {
				next := region[i+1].Text
				if isNameText(next) && !programCode.Match(next) {
					current.Name = strings.TrimSpace(next)
					i++
				}
			}
			continue
		}

		if current != nil && tok.X > column {
			body = append(body, tok.Text)
		}
	}
	flush()

	logging.FromContext(ctx).Debug().
		Str("org_code", sec.OrgCode).
		Float64("header_column", column).
		Int("programs", len(programs)).
		Msg("Extracted program descriptions")
	return programs
}

// DepartmentSummary returns the text between a section's header and its
// expenditure marker, one line per token.
func DepartmentSummary(doc *document.Document, sec document.Section) string {
	if sec.HeaderIndex < 0 || sec.MarkerIndex <= sec.HeaderIndex {
		return ""
	}
	var lines []string
	for _, tok := range doc.Slice(sec.HeaderIndex+1, sec.MarkerIndex) {
		lines = append(lines, tok.Text)
	}
	return strings.Join(lines, "\n")
}
