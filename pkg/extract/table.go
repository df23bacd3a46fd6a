// Package extract pulls budget allocations, program descriptions, department
// summaries and organization levels out of positional documents using
// coordinate clustering.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/civicledger/budgetmap/internal/matcher"
	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
)

var (
	detailedMarker  = matcher.MustNew(matcher.Regex, `detailed\s+expenditures\s+by\s+program`, ci)
	fiscalYearLabel = matcher.MustNew(matcher.Regex, `^(\d{4}-\d{2})\*?$`)
	codeField       = matcher.MustNew(matcher.Regex, `^\d{4,7}$`)
)

var ci = &matcher.Options{CaseInsensitive: true}

// Options tune the coordinate heuristics.
type Options struct {
	ClusterGap          float64
	LeftMarginTolerance float64
	HeaderTolerance     float64
}

// DefaultOptions returns the standard layout thresholds.
func DefaultOptions() Options {
	return Options{
		ClusterGap:          constants.ClusterGap,
		LeftMarginTolerance: constants.LeftMarginTolerance,
		HeaderTolerance:     constants.HeaderColumnTolerance,
	}
}

// Table is the result of extracting one section's detailed expenditures.
type Table struct {
	FiscalYears []string
	LeftMargin  float64
	Allocations []registry.Allocation
	// Discarded counts amounts that could not be bound to a complete
	// project, funding type and fund.
	Discarded int
}

type tableState struct {
	project     string
	fundingType registry.FundingType
	fundCode    string
	fundName    string
	pending     []decimal.Decimal
	discarded   int
}

func (s *tableState) dropPending() {
	s.discarded += len(s.pending)
	s.pending = s.pending[:0]
}

func (s *tableState) resetProject(code string) {
	s.dropPending()
	s.project = code
	s.fundingType = ""
	s.fundCode, s.fundName = "", ""
}

func (s *tableState) setFund(code, name string) {
	s.dropPending()
	s.fundCode, s.fundName = code, name
}

func (s *tableState) clearFund() {
	s.dropPending()
	s.fundCode, s.fundName = "", ""
}

func (s *tableState) ready() bool {
	return s.project != "" && s.fundingType != "" && s.fundCode != ""
}

// ExtractTable reads the detailed expenditure table of sec. A section without
// the table marker or without exactly three fiscal-year columns yields a
// StructureError.
func ExtractTable(ctx context.Context, doc *document.Document, sec document.Section, opts Options) (*Table, error) {
	logger := logging.FromContext(ctx)

	markerIdx := -1
	for i := sec.Start; i < sec.End; i++ {
		if detailedMarker.Match(doc.Text(i)) {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return nil, errors.NewStructureError(sec.OrgCode, "detailed-expenditures", "no DETAILED EXPENDITURES BY PROGRAM marker")
	}

	years, next := fiscalYears(doc, markerIdx+1, sec.End)
	if len(years) != constants.FiscalYearColumns {
		return nil, errors.NewStructureError(sec.OrgCode, "fiscal-years",
			fmt.Sprintf("expected %d fiscal year columns after table marker, found %d", constants.FiscalYearColumns, len(years)))
	}

	region := doc.Slice(next, sec.End)
	table := &Table{
		FiscalYears: years,
		LeftMargin:  LeftMargin(region, opts.ClusterGap, opts.LeftMarginTolerance),
	}

	var st tableState
	for i, tok := range region {
		text := tok.Text

		if detailedMarker.Match(text) {
			continue
		}
		if _, _, ok := document.ParseContinuation(text); ok {
			continue
		}
		if ft, ok := registry.ParseFundingType(text); ok {
			st.fundingType = ft
			st.clearFund()
			continue
		}

		fields := strings.Fields(text)
		var amounts []decimal.Decimal

		if tok.X <= table.LeftMargin && codeField.Match(fields[0]) && len(fields[0]) != 6 {
			code := fields[0]
			rest, trailing := splitAmounts(strings.Join(fields[1:], " "))
			hasText := rest != "" || (i+1 < len(region) && isNameText(region[i+1].Text))
			name := rest
			if name == "" && hasText {
				name = strings.TrimSpace(region[i+1].Text)
			}

			switch {
			case len(code) == 7:
				st.resetProject(code)
			case len(code) == 5:
				st.setFund(code, name)
			case len(code) == 4 && st.fundingType != "" && hasText && !opensProject(region, i):
				st.setFund(code, name)
			case len(code) == 4:
				st.resetProject(code + "000")
			default:
				continue
			}
			amounts = trailing
		} else {
			rest, trailing := splitAmounts(text)
			if rest != "" {
				continue
			}
			amounts = trailing
		}

		for _, amt := range amounts {
			if !st.ready() {
				st.discarded++
				continue
			}
			st.pending = append(st.pending, amt)
			if len(st.pending) == len(years) {
				table.Allocations = append(table.Allocations, emit(sec.OrgCode, doc.Name, years, &st)...)
				st.pending = st.pending[:0]
				st.clearFund()
			}
		}
	}
	st.dropPending()
	table.Discarded = st.discarded

	logger.Debug().
		Str("org_code", sec.OrgCode).
		Strs("fiscal_years", years).
		Float64("left_margin", table.LeftMargin).
		Int("allocations", len(table.Allocations)).
		Int("discarded", table.Discarded).
		Msg("Extracted expenditure table")
	return table, nil
}

func emit(orgCode, source string, years []string, st *tableState) []registry.Allocation {
	out := make([]registry.Allocation, 0, len(years))
	for i, fy := range years {
		out = append(out, registry.Allocation{
			OrgCode:         orgCode,
			ProjectCode:     st.project,
			FundingType:     st.fundingType,
			FundCode:        st.fundCode,
			FundName:        st.fundName,
			FiscalYear:      fy,
			Amount:          st.pending[i],
			OccurrenceCount: 1,
			SourceFile:      source,
		})
	}
	return out
}

// fiscalYears collects "YYYY-YY" labels starting at from. Labels may share a
// token. Collection stops at the first token holding anything else; the
// index of that token is returned with the labels.
func fiscalYears(doc *document.Document, from, end int) ([]string, int) {
	var years []string
	i := from
	for ; i < end; i++ {
		fields := strings.Fields(doc.Text(i))
		labels := make([]string, 0, len(fields))
		for _, f := range fields {
			m := fiscalYearLabel.Submatch(f)
			if m == nil {
				return years, i
			}
			labels = append(labels, m[1])
		}
		years = append(years, labels...)
	}
	return years, i
}

// opensProject reports whether the code token at i, after its optional name
// token, is followed by a funding type label. Only a project header is; a
// fund line is followed by its amounts.
func opensProject(region []document.Token, i int) bool {
	j := i + 1
	if j < len(region) && isNameText(region[j].Text) {
		j++
	}
	if j >= len(region) {
		return false
	}
	_, ok := registry.ParseFundingType(region[j].Text)
	return ok
}

// isNameText reports whether text reads like a name rather than a number,
// code or label.
func isNameText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if _, ok := registry.ParseFundingType(text); ok {
		return false
	}
	r := []rune(text)[0]
	return unicode.IsLetter(r)
}
