package registry

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agentstation/utc"
	"github.com/shopspring/decimal"
)

// FundingType distinguishes state operations from local assistance spending.
type FundingType string

// Funding types as printed in the detailed expenditure tables.
const (
	StateOperations FundingType = "State Operations"
	LocalAssistance FundingType = "Local Assistance"
)

// ParseFundingType recognizes "State Operations:" and "Local Assistance:"
// labels, with or without the trailing colon.
func ParseFundingType(s string) (FundingType, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ":")
	switch {
	case strings.EqualFold(s, string(StateOperations)):
		return StateOperations, true
	case strings.EqualFold(s, string(LocalAssistance)):
		return LocalAssistance, true
	}
	return "", false
}

// IsValid reports whether t is a known funding type.
func (t FundingType) IsValid() bool {
	return t == StateOperations || t == LocalAssistance
}

var fiscalYearPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// IsFiscalYear reports whether s has the "YYYY-YY" form.
func IsFiscalYear(s string) bool {
	return fiscalYearPattern.MatchString(s)
}

// FiscalYearStart returns the starting calendar year of a "YYYY-YY" fiscal
// year, or "" if s is not one.
func FiscalYearStart(s string) string {
	m := fiscalYearPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// Allocation is one budget amount for a department, project, funding type,
// fund and fiscal year.
type Allocation struct {
	OrgCode         string          `json:"org_code" yaml:"org_code"`
	ProjectCode     string          `json:"project_code" yaml:"project_code"`
	FundingType     FundingType     `json:"funding_type" yaml:"funding_type"`
	FundCode        string          `json:"fund_code" yaml:"fund_code"`
	FundName        string          `json:"fund_name" yaml:"fund_name"`
	FiscalYear      string          `json:"fiscal_year" yaml:"fiscal_year"`
	Amount          decimal.Decimal `json:"amount" yaml:"amount"`
	OccurrenceCount int             `json:"occurrence_count" yaml:"occurrence_count"`
	SourceFile      string          `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	UpdatedAt       utc.Time        `json:"updated_at" yaml:"updated_at"`
}

// AllocationKey is the unique key of an allocation. Re-extracting the same key
// overwrites the stored amount.
type AllocationKey struct {
	OrgCode     string
	FiscalYear  string
	ProjectCode string
	FundingType FundingType
	FundCode    string
}

// String renders the key for logs.
func (k AllocationKey) String() string {
	return strings.Join([]string{k.OrgCode, k.FiscalYear, k.ProjectCode, string(k.FundingType), k.FundCode}, "/")
}

// Key returns the unique key of a.
func (a Allocation) Key() AllocationKey {
	return AllocationKey{
		OrgCode:     a.OrgCode,
		FiscalYear:  a.FiscalYear,
		ProjectCode: a.ProjectCode,
		FundingType: a.FundingType,
		FundCode:    a.FundCode,
	}
}

// Allocations is a concurrent safe collection of budget allocations.
type Allocations struct {
	store[AllocationKey, Allocation]
}

// NewAllocations creates an empty collection.
func NewAllocations() *Allocations {
	return &Allocations{store: newStore[AllocationKey, Allocation]()}
}

// Get returns an allocation by key.
func (a *Allocations) Get(key AllocationKey) (*Allocation, bool) {
	return a.get(key)
}

// Len returns the number of allocations.
func (a *Allocations) Len() int {
	return a.len()
}

// ByOrgCode returns the allocations of one department in key order.
func (a *Allocations) ByOrgCode(orgCode string) []Allocation {
	var out []Allocation
	a.forEach(func(_ AllocationKey, alloc *Allocation) bool {
		if alloc.OrgCode == orgCode {
			out = append(out, *alloc)
		}
		return true
	})
	sortAllocations(out)
	return out
}

// SpendingByYear sums a department's allocations per starting calendar year.
func (a *Allocations) SpendingByYear(orgCode string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	a.forEach(func(_ AllocationKey, alloc *Allocation) bool {
		if alloc.OrgCode != orgCode {
			return true
		}
		year := FiscalYearStart(alloc.FiscalYear)
		if year == "" {
			return true
		}
		totals[year] = totals[year].Add(alloc.Amount)
		return true
	})
	return totals
}

// List returns copies of all allocations in key order.
func (a *Allocations) List() []Allocation {
	items := a.snapshot()
	out := make([]Allocation, 0, len(items))
	for _, alloc := range items {
		out = append(out, *alloc)
	}
	sortAllocations(out)
	return out
}

func sortAllocations(out []Allocation) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
}
