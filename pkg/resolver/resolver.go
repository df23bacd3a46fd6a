// Package resolver matches source records against canonical departments with
// an ordered cascade of strategies, from exact code match to fuzzy name
// similarity.
package resolver

import (
	"fmt"
	"sort"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// Candidate is one scored department.
type Candidate struct {
	ID           registry.DepartmentID `json:"id" yaml:"id"`
	Name         string                `json:"name" yaml:"name"`
	OrgCode      string                `json:"org_code,omitempty" yaml:"org_code,omitempty"`
	Score        float64               `json:"score" yaml:"score"`
	MatchType    MatchType             `json:"match_type" yaml:"match_type"`
	CodeMismatch bool                  `json:"code_mismatch,omitempty" yaml:"code_mismatch,omitempty"`
}

// String renders the candidate for operator prompts.
func (c Candidate) String() string {
	code := c.OrgCode
	if code == "" {
		code = "----"
	}
	s := fmt.Sprintf("%s %s (%s, %.1f)", code, c.Name, c.MatchType, c.Score)
	if c.CodeMismatch {
		s += " [code mismatch]"
	}
	return s
}

// Resolution is the outcome of resolving one record.
type Resolution struct {
	Record     Record
	Best       *Candidate
	Candidates []Candidate
}

// Ambiguous reports that candidates exist but none is confident. Ambiguous
// resolutions always go to the operator.
func (r Resolution) Ambiguous() bool {
	return r.Best == nil && len(r.Candidates) > 0
}

// Unmatched reports that nothing in the registry resembles the record.
func (r Resolution) Unmatched() bool {
	return r.Best == nil && len(r.Candidates) == 0
}

// Source provides the departments to match against.
type Source interface {
	List() []registry.Department
}

// Resolver runs the strategy cascade.
type Resolver struct {
	strategies    []Strategy
	autoThreshold float64
	maxCandidates int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThresholds sets the confident and candidate thresholds.
func WithThresholds(auto, candidate float64) Option {
	return func(r *Resolver) {
		r.autoThreshold = auto
		r.strategies[len(r.strategies)-1] = Fuzzy(candidate)
	}
}

// WithMaxCandidates caps the ranked candidate list.
func WithMaxCandidates(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCandidates = n
		}
	}
}

// New creates a resolver with the standard cascade: exact code, exact name,
// alias, normalized name, fuzzy similarity.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		strategies: []Strategy{
			ExactCode(),
			ExactName(),
			Alias(),
			Normalized(),
			Fuzzy(constants.CandidateThreshold),
		},
		autoThreshold: constants.AutoMatchThreshold,
		maxCandidates: constants.MaxCandidates,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// confident reports whether c may be applied without asking.
func (r *Resolver) confident(c Candidate) bool {
	if c.CodeMismatch {
		return false
	}
	if c.MatchType == MatchFuzzy {
		return c.Score > r.autoThreshold
	}
	return c.Score >= r.autoThreshold
}

// Resolve runs the cascade for rec. The first strategy producing a confident
// candidate ends the cascade. Every department evaluated up to that point is
// kept as a candidate, scored by the earliest strategy that matched it, and
// ranked by score.
func (r *Resolver) Resolve(rec Record, src Source) Resolution {
	depts := src.List()
	res := Resolution{Record: rec}
	byID := make(map[registry.DepartmentID]Candidate)

	for _, s := range r.strategies {
		var best *Candidate
		for i := range depts {
			dept := &depts[i]
			score, ok := s.Score(rec, dept)
			if !ok {
				continue
			}
			c := Candidate{
				ID:           dept.ID,
				Name:         dept.CanonicalName,
				OrgCode:      dept.OrgCode,
				Score:        score,
				MatchType:    s.Type(),
				CodeMismatch: codeConflict(rec, dept),
			}
			if _, seen := byID[c.ID]; !seen {
				byID[c.ID] = c
			}
			if r.confident(c) && (best == nil || c.Score > best.Score) {
				cc := c
				best = &cc
			}
		}
		if best != nil {
			res.Best = best
			break
		}
	}

	for _, c := range byID {
		res.Candidates = append(res.Candidates, c)
	}
	sort.Slice(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
	if len(res.Candidates) > r.maxCandidates {
		res.Candidates = res.Candidates[:r.maxCandidates]
	}
	return res
}
