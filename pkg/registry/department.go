package registry

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agentstation/utc"
	"github.com/shopspring/decimal"
)

// DepartmentID is the stable identifier of a canonical department.
type DepartmentID string

// String returns the string representation of a DepartmentID.
func (id DepartmentID) String() string {
	return string(id)
}

// Bucket is one range of a distribution together with its count.
type Bucket struct {
	Range string `json:"range" yaml:"range"`
	Count int    `json:"count" yaml:"count"`
}

// Distribution maps a year to its ordered buckets.
type Distribution map[string][]Bucket

// Sum returns the total count across the buckets of year.
func (d Distribution) Sum(year string) int {
	total := 0
	for _, b := range d[year] {
		total += b.Count
	}
	return total
}

// Department is a canonical government department. Departments are never
// deleted.
type Department struct {
	ID            DepartmentID `json:"id" yaml:"id"`
	OrgCode       string       `json:"org_code,omitempty" yaml:"org_code,omitempty"`
	Name          string       `json:"name" yaml:"name"`
	CanonicalName string       `json:"canonical_name" yaml:"canonical_name"`
	Aliases       []string     `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	ParentAgency  string       `json:"parent_agency,omitempty" yaml:"parent_agency,omitempty"`
	OrgLevel      string       `json:"org_level,omitempty" yaml:"org_level,omitempty"`
	BudgetStatus  string       `json:"budget_status,omitempty" yaml:"budget_status,omitempty"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`

	HeadCount          map[string]int             `json:"head_count,omitempty" yaml:"head_count,omitempty"`
	Wages              map[string]decimal.Decimal `json:"wages,omitempty" yaml:"wages,omitempty"`
	Compensation       map[string]decimal.Decimal `json:"compensation,omitempty" yaml:"compensation,omitempty"`
	Spending           map[string]decimal.Decimal `json:"spending,omitempty" yaml:"spending,omitempty"`
	SalaryDistribution Distribution               `json:"salary_distribution,omitempty" yaml:"salary_distribution,omitempty"`
	TenureDistribution Distribution               `json:"tenure_distribution,omitempty" yaml:"tenure_distribution,omitempty"`
	AgeDistribution    Distribution               `json:"age_distribution,omitempty" yaml:"age_distribution,omitempty"`

	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// Names returns the name, canonical name and aliases, without duplicates.
func (d *Department) Names() []string {
	names := make([]string, 0, 2+len(d.Aliases))
	seen := make(map[string]bool)
	for _, n := range append([]string{d.Name, d.CanonicalName}, d.Aliases...) {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, n)
	}
	return names
}

// HasAlias reports whether name is already one of the department's aliases,
// ignoring case.
func (d *Department) HasAlias(name string) bool {
	return slices.ContainsFunc(d.Aliases, func(a string) bool {
		return strings.EqualFold(a, name)
	})
}

// AddAlias records name as an alias unless it is empty, equal to the name or
// canonical name, or already present. It reports whether the alias was added.
func (d *Department) AddAlias(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, d.Name) || strings.EqualFold(name, d.CanonicalName) || d.HasAlias(name) {
		return false
	}
	d.Aliases = append(d.Aliases, name)
	return true
}

// Slug converts a department name into an identifier:
// "Department of Water Resources" -> "department_of_water_resources".
func Slug(name string) DepartmentID {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return DepartmentID(b.String())
}

// DeepCopyDepartment returns a copy of d that shares no maps or slices.
func DeepCopyDepartment(d Department) Department {
	out := d
	out.Aliases = slices.Clone(d.Aliases)
	if d.HeadCount != nil {
		out.HeadCount = make(map[string]int, len(d.HeadCount))
		for k, v := range d.HeadCount {
			out.HeadCount[k] = v
		}
	}
	out.Wages = copyAmounts(d.Wages)
	out.Compensation = copyAmounts(d.Compensation)
	out.Spending = copyAmounts(d.Spending)
	out.SalaryDistribution = copyDistribution(d.SalaryDistribution)
	out.TenureDistribution = copyDistribution(d.TenureDistribution)
	out.AgeDistribution = copyDistribution(d.AgeDistribution)
	return out
}

func copyAmounts(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	if in == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyDistribution(in Distribution) Distribution {
	if in == nil {
		return nil
	}
	out := make(Distribution, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// Workforce is one year of payroll figures for a department. Compensation is
// wages plus benefits.
type Workforce struct {
	Year         string          `json:"year" yaml:"year"`
	HeadCount    int             `json:"head_count" yaml:"head_count"`
	Wages        decimal.Decimal `json:"wages" yaml:"wages"`
	Compensation decimal.Decimal `json:"compensation" yaml:"compensation"`
	Salary       []Bucket        `json:"salary" yaml:"salary"`
}
