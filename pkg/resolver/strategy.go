package resolver

import (
	"strings"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// MatchType names the strategy that produced a candidate.
type MatchType string

// Match types in cascade order.
const (
	MatchExactCode MatchType = "exact-code"
	MatchExactName MatchType = "exact-name"
	MatchAlias     MatchType = "alias"
	MatchNormal    MatchType = "normalized"
	MatchFuzzy     MatchType = "fuzzy"
)

// Record is the source-side identity being resolved.
type Record struct {
	OrgCode string
	Name    string
}

// Strategy scores one department against a record. ok is false when the
// strategy does not apply.
type Strategy interface {
	// Type returns the match type the strategy reports
	Type() MatchType

	// Score evaluates the department
	Score(rec Record, dept *registry.Department) (score float64, ok bool)
}

// codeConflict reports whether both sides carry an org code and they differ.
func codeConflict(rec Record, dept *registry.Department) bool {
	return rec.OrgCode != "" && dept.OrgCode != "" && rec.OrgCode != dept.OrgCode
}

// baseStrategy holds the scores shared by the name based strategies.
type baseStrategy struct {
	matchType MatchType
	score     float64
	conflict  float64
}

func (s *baseStrategy) Type() MatchType {
	return s.matchType
}

func (s *baseStrategy) result(rec Record, dept *registry.Department) (float64, bool) {
	if codeConflict(rec, dept) {
		return s.conflict, true
	}
	return s.score, true
}

type exactCode struct{}

// ExactCode matches on identical org codes.
func ExactCode() Strategy { return exactCode{} }

func (exactCode) Type() MatchType { return MatchExactCode }

func (exactCode) Score(rec Record, dept *registry.Department) (float64, bool) {
	if rec.OrgCode == "" || rec.OrgCode != dept.OrgCode {
		return 0, false
	}
	return constants.ScoreExactCode, true
}

type exactName struct{ baseStrategy }

// ExactName matches the name or canonical name, ignoring case.
func ExactName() Strategy {
	return &exactName{baseStrategy{MatchExactName, constants.ScoreExactName, constants.ScoreExactNameCodeConflict}}
}

func (s *exactName) Score(rec Record, dept *registry.Department) (float64, bool) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return 0, false
	}
	if strings.EqualFold(name, dept.Name) || strings.EqualFold(name, dept.CanonicalName) {
		return s.result(rec, dept)
	}
	return 0, false
}

type alias struct{ baseStrategy }

// Alias matches any recorded alias, ignoring case.
func Alias() Strategy {
	return &alias{baseStrategy{MatchAlias, constants.ScoreAlias, constants.ScoreAliasCodeConflict}}
}

func (s *alias) Score(rec Record, dept *registry.Department) (float64, bool) {
	name := strings.TrimSpace(rec.Name)
	if name == "" || !dept.HasAlias(name) {
		return 0, false
	}
	return s.result(rec, dept)
}

type normalized struct{ baseStrategy }

// Normalized compares names after Normalize.
func Normalized() Strategy {
	return &normalized{baseStrategy{MatchNormal, constants.ScoreNormalized, constants.ScoreNormalizedCodeConflict}}
}

func (s *normalized) Score(rec Record, dept *registry.Department) (float64, bool) {
	want := Normalize(rec.Name)
	if want == "" {
		return 0, false
	}
	for _, n := range dept.Names() {
		if Normalize(n) == want {
			return s.result(rec, dept)
		}
	}
	return 0, false
}

type fuzzy struct {
	floor float64
}

// Fuzzy scores the best Similarity between normalized names. Scores at or
// below floor are not reported.
func Fuzzy(floor float64) Strategy { return &fuzzy{floor: floor} }

func (s *fuzzy) Type() MatchType { return MatchFuzzy }

func (s *fuzzy) Score(rec Record, dept *registry.Department) (float64, bool) {
	want := Normalize(rec.Name)
	if want == "" {
		return 0, false
	}
	best := 0.0
	for _, n := range dept.Names() {
		best = max(best, Similarity(want, Normalize(n)))
	}
	if best <= s.floor {
		return 0, false
	}
	return best, true
}
