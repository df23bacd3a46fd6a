// Package validation checks the structural and arithmetic invariants of the
// registry. It runs before and after every merge; its findings are logged and
// counted but never block persistence.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// Severity grades an issue.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one violated invariant.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Entity   string   `json:"entity" yaml:"entity"`
	Field    string   `json:"field" yaml:"field"`
	Message  string   `json:"message" yaml:"message"`
}

// String renders the issue on one line.
func (i Issue) String() string {
	return fmt.Sprintf("%s: %s %s: %s", i.Severity, i.Entity, i.Field, i.Message)
}

// Report holds the issues found by one validation pass.
type Report struct {
	Issues []Issue `json:"issues" yaml:"issues"`
}

func (r *Report) add(sev Severity, entity, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Entity:   entity,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// Errors returns the number of error issues.
func (r *Report) Errors() int { return r.count(SeverityError) }

// Warnings returns the number of warning issues.
func (r *Report) Warnings() int { return r.count(SeverityWarning) }

// IsValid returns true if there are no errors.
func (r *Report) IsValid() bool { return r.Errors() == 0 }

// String returns a human-readable summary of the report.
func (r *Report) String() string {
	if len(r.Issues) == 0 {
		return "Validation passed"
	}
	lines := []string{fmt.Sprintf("Validation found %d errors and %d warnings", r.Errors(), r.Warnings())}
	for _, i := range r.Issues {
		lines = append(lines, "  "+i.String())
	}
	return strings.Join(lines, "\n")
}

// Log writes each issue and a closing count to the context logger.
func (r *Report) Log(ctx context.Context, stage string) {
	logger := logging.FromContext(ctx)
	for _, i := range r.Issues {
		ev := logger.Warn()
		if i.Severity == SeverityError {
			ev = logger.Error()
		}
		ev.Str("stage", stage).
			Str("entity", i.Entity).
			Str("field", i.Field).
			Msg(i.Message)
	}
	logger.Info().
		Str("event", "validation").
		Str("stage", stage).
		Int("errors", r.Errors()).
		Int("warnings", r.Warnings()).
		Msg("Validation complete")
}

// Validate checks every department and allocation in repo.
func Validate(repo *registry.Repository) *Report {
	r := &Report{}
	for _, d := range repo.Departments().List() {
		r.Issues = append(r.Issues, Department(&d)...)
	}
	for _, a := range repo.Allocations().List() {
		r.Issues = append(r.Issues, Allocation(a, repo.Funds())...)
	}
	return r
}

// Department checks one department: identity fields, enumerated bucket
// ranges, and that each year's bucket counts sum to that year's headcount.
func Department(d *registry.Department) []Issue {
	r := &Report{}
	entity := "department " + d.ID.String()
	if d.ID == "" {
		entity = fmt.Sprintf("department %q", d.Name)
		r.add(SeverityError, entity, "id", "is required")
	}
	if strings.TrimSpace(d.CanonicalName) == "" {
		r.add(SeverityError, entity, "canonical_name", "is required")
	}

	distributions := []struct {
		kind registry.DistributionKind
		dist registry.Distribution
	}{
		{registry.SalaryKind, d.SalaryDistribution},
		{registry.TenureKind, d.TenureDistribution},
		{registry.AgeKind, d.AgeDistribution},
	}
	for _, dd := range distributions {
		field := string(dd.kind) + "_distribution"
		labels := registry.BucketLabels(dd.kind)
		for _, year := range sortedYears(dd.dist) {
			for _, b := range dd.dist[year] {
				if !slices.Contains(labels, b.Range) {
					r.add(SeverityError, entity, field, "year %s has unknown range %q", year, b.Range)
				}
				if b.Count < 0 {
					r.add(SeverityError, entity, field, "year %s range %s has negative count %d", year, b.Range, b.Count)
				}
			}
			sum, head := dd.dist.Sum(year), d.HeadCount[year]
			if sum != head {
				r.add(SeverityWarning, entity, field, "year %s buckets sum to %d, headcount is %d", year, sum, head)
			}
		}
	}
	return r.Issues
}

var (
	orgCodePattern     = regexp.MustCompile(`^\d{4}$`)
	projectCodePattern = regexp.MustCompile(`^\d{7}$`)
	fundCodePattern    = regexp.MustCompile(`^\d{4,5}$`)
)

// Allocation checks that an allocation's key is well formed and that its fund
// is registered.
func Allocation(a registry.Allocation, funds *registry.Funds) []Issue {
	r := &Report{}
	entity := "allocation " + a.Key().String()
	if !orgCodePattern.MatchString(a.OrgCode) {
		r.add(SeverityError, entity, "org_code", "%q is not a 4-digit code", a.OrgCode)
	}
	if !projectCodePattern.MatchString(a.ProjectCode) {
		r.add(SeverityError, entity, "project_code", "%q is not a 7-digit code", a.ProjectCode)
	}
	if !a.FundingType.IsValid() {
		r.add(SeverityError, entity, "funding_type", "%q is not a funding type", a.FundingType)
	}
	if !registry.IsFiscalYear(a.FiscalYear) {
		r.add(SeverityError, entity, "fiscal_year", "%q is not a YYYY-YY fiscal year", a.FiscalYear)
	}
	if !fundCodePattern.MatchString(a.FundCode) {
		r.add(SeverityError, entity, "fund_code", "%q is not a 4 or 5 digit code", a.FundCode)
	} else if funds != nil && !funds.Exists(a.FundCode) {
		r.add(SeverityError, entity, "fund_code", "fund %s is not registered", a.FundCode)
	}
	return r.Issues
}

func sortedYears(d registry.Distribution) []string {
	years := make([]string, 0, len(d))
	for y := range d {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
