package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/logging"
)

// Section is the token range of one department within a document.
type Section struct {
	OrgCode       string `json:"org_code" yaml:"org_code"`
	Name          string `json:"name" yaml:"name"`
	Start         int    `json:"start" yaml:"start"` // inclusive
	End           int    `json:"end" yaml:"end"`     // exclusive
	HeaderIndex   int    `json:"header_index" yaml:"header_index"`
	MarkerIndex   int    `json:"marker_index" yaml:"marker_index"`
	Continuations []int  `json:"continuations,omitempty" yaml:"continuations,omitempty"`
	StartPage     int    `json:"start_page" yaml:"start_page"`
	EndPage       int    `json:"end_page" yaml:"end_page"`
	Backfilled    bool   `json:"backfilled,omitempty" yaml:"backfilled,omitempty"`
}

// String renders the section for prompts and logs.
func (s Section) String() string {
	suffix := ""
	if s.Backfilled {
		suffix = " [backfilled]"
	}
	return fmt.Sprintf("%s %s (tokens %d-%d, pages %d-%d)%s", s.OrgCode, s.Name, s.Start, s.End, s.StartPage, s.EndPage, suffix)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Segmenter finds department sections in a document.
type Segmenter struct {
	confirm  Confirmer
	lookback int
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithLookback sets how many tokens to search backwards for a department
// header.
func WithLookback(n int) SegmenterOption {
	return func(s *Segmenter) {
		if n > 0 {
			s.lookback = n
		}
	}
}

// NewSegmenter creates a segmenter that consults c for backfill candidates and
// for final approval of the section list.
func NewSegmenter(c Confirmer, opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{confirm: c, lookback: constants.HeaderLookback}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type continuationGroup struct {
	code    string
	name    string
	indices []int
}

// layout is the marker and continuation index of a document.
type layout struct {
	doc           *Document
	markers       []int
	groups        []*continuationGroup
	isMarker      map[int]bool
	continuations map[int]string
}

func scan(doc *Document) *layout {
	l := &layout{
		doc:           doc,
		isMarker:      make(map[int]bool),
		continuations: make(map[int]string),
	}
	byCode := make(map[string]*continuationGroup)

	for i := 0; i < doc.Len(); i++ {
		text := doc.Text(i)
		if IsExpenditureMarker(text) {
			l.markers = append(l.markers, i)
			l.isMarker[i] = true
			continue
		}

		code, name, ok := ParseContinuation(text)
		if !ok && startsWithCode.Match(text) && i+1 < doc.Len() {
			if _, _, nextOK := ParseContinuation(doc.Text(i + 1)); !nextOK {
				code, name, ok = ParseContinuation(text + " " + doc.Text(i+1))
			}
		}
		if !ok {
			continue
		}

		l.continuations[i] = code
		g, seen := byCode[code]
		if !seen {
			g = &continuationGroup{code: code, name: name}
			byCode[code] = g
			l.groups = append(l.groups, g)
		}
		g.indices = append(g.indices, i)
	}
	return l
}

// lastMarkerBefore returns the last marker index below i, or -1.
func (l *layout) lastMarkerBefore(i int) int {
	found := -1
	for _, m := range l.markers {
		if m >= i {
			break
		}
		found = m
	}
	return found
}

// findHeader walks back from index from (exclusive) at most lookback tokens
// for a department header. A non-empty code restricts the match.
func (l *layout) findHeader(from, lookback int, code string, claimed map[int]bool) (idx int, hcode, hname string) {
	lower := max(from-lookback, 0)
	for i := from - 1; i >= lower; i-- {
		if claimed[i] || l.isMarker[i] {
			continue
		}
		text := l.doc.Text(i)
		c, n, ok := ParseHeader(text)
		if !ok && bareOrgCode.Match(text) && i+1 < from {
			c, n, ok = ParseHeader(text + " " + l.doc.Text(i+1))
		}
		if !ok {
			continue
		}
		if code != "" && c != code {
			continue
		}
		return i, c, n
	}
	return -1, "", ""
}

// endAfter returns the first index after from that is a marker or a
// continuation header of a department other than code.
func (l *layout) endAfter(from int, code string) int {
	for i := from + 1; i < l.doc.Len(); i++ {
		if l.isMarker[i] {
			return i
		}
		if c, ok := l.continuations[i]; ok && c != code {
			return i
		}
	}
	return l.doc.Len()
}

// Segment returns the approved department sections of doc in document order.
// An empty result is not an error; only operator errors such as an abort are
// returned.
func (s *Segmenter) Segment(ctx context.Context, doc *Document) ([]Section, error) {
	logger := logging.FromContext(ctx)
	l := scan(doc)

	logger.Debug().
		Int("markers", len(l.markers)).
		Int("continuation_groups", len(l.groups)).
		Msg("Scanned document layout")

	var sections []Section
	anchors := make(map[int]bool)
	claimed := make(map[int]bool)

	for _, g := range l.groups {
		first := g.indices[0]
		anchor := l.lastMarkerBefore(first)
		if anchor < 0 {
			logger.Warn().Str("org_code", g.code).Int("index", first).
				Msg("Continuation header has no preceding expenditure marker, skipping")
			continue
		}
		if anchors[anchor] {
			logger.Warn().Str("org_code", g.code).Int("marker", anchor).
				Msg("Expenditure marker already anchors another department, skipping")
			continue
		}
		anchors[anchor] = true

		sec := Section{
			OrgCode:       g.code,
			Name:          g.name,
			MarkerIndex:   anchor,
			HeaderIndex:   -1,
			Start:         anchor,
			Continuations: g.indices,
		}
		if idx, _, name := l.findHeader(anchor, s.lookback, g.code, claimed); idx >= 0 {
			sec.HeaderIndex = idx
			sec.Start = idx
			sec.Name = name
			claimed[idx] = true
		}
		sec.End = l.endAfter(max(g.indices[len(g.indices)-1], anchor), g.code)
		sections = append(sections, sec)
	}

	if len(sections) < len(l.markers) {
		backfilled, err := s.backfill(ctx, l, anchors, claimed, sections)
		if err != nil {
			return nil, err
		}
		sections = append(sections, backfilled...)
	}

	sections = finalize(doc, sections)
	if len(sections) == 0 {
		logger.Info().Msg("No department sections found")
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d department sections in %s:\n", len(sections), doc.Name)
	for i, sec := range sections {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, sec)
	}
	b.WriteString("Approve this section list?")
	ok, err := s.confirm.Confirm(ctx, b.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Info().Int("sections", len(sections)).Msg("Section list rejected")
		return nil, nil
	}
	return sections, nil
}

// backfill proposes sections for expenditure markers that anchor no
// continuation group, using an unclaimed header found before each marker.
func (s *Segmenter) backfill(ctx context.Context, l *layout, anchors, claimed map[int]bool, existing []Section) ([]Section, error) {
	logger := logging.FromContext(ctx)
	known := make(map[string]bool, len(existing))
	for _, sec := range existing {
		known[sec.OrgCode] = true
	}

	var out []Section
	for _, m := range l.markers {
		if anchors[m] {
			continue
		}
		idx, code, name := l.findHeader(m, s.lookback, "", claimed)
		if idx < 0 || known[code] {
			logger.Debug().Int("marker", m).Msg("Orphan expenditure marker has no unclaimed header")
			continue
		}

		sec := Section{
			OrgCode:     code,
			Name:        name,
			Start:       idx,
			End:         l.endAfter(m, code),
			HeaderIndex: idx,
			MarkerIndex: m,
			Backfilled:  true,
		}
		prompt := fmt.Sprintf("Department %s %s has no continuation pages (tokens %d-%d). Include it?", code, name, sec.Start, sec.End)
		ok, err := s.confirm.Confirm(ctx, prompt)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Info().Str("org_code", code).Msg("Backfill candidate rejected")
			continue
		}
		anchors[m] = true
		claimed[idx] = true
		known[code] = true
		out = append(out, sec)
	}
	return out, nil
}

// finalize orders sections, stops each one where the next begins and fills
// in page numbers.
func finalize(doc *Document, sections []Section) []Section {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Start < sections[j].Start
	})
	out := make([]Section, 0, len(sections))
	for i := range sections {
		sec := sections[i]
		if i+1 < len(sections) && sections[i+1].Start < sec.End {
			sec.End = sections[i+1].Start
		}
		if sec.End <= sec.Start {
			continue
		}
		sec.StartPage = doc.Tokens[sec.Start].Page
		sec.EndPage = doc.Tokens[sec.End-1].Page
		out = append(out, sec)
	}
	return out
}
