package validation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/validation"
)

func staffed() registry.Department {
	return registry.Department{
		ID:            "judicial_branch",
		Name:          "Judicial Branch",
		CanonicalName: "Judicial Branch",
		HeadCount:     map[string]int{"2023": 5},
		SalaryDistribution: registry.Distribution{
			"2023": {{Range: "30000-49999", Count: 2}, {Range: "50000-69999", Count: 3}},
		},
	}
}

func TestDepartmentDistributionSum(t *testing.T) {
	d := staffed()
	assert.Empty(t, validation.Department(&d))

	d.SalaryDistribution["2023"][1].Count = 4
	issues := validation.Department(&d)
	require.Len(t, issues, 1)
	assert.Equal(t, validation.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "salary_distribution", issues[0].Field)
	assert.Contains(t, issues[0].Message, "sum to 6, headcount is 5")
}

func TestDepartmentStructure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*registry.Department)
		field  string
	}{
		{"missing id", func(d *registry.Department) { d.ID = "" }, "id"},
		{"missing canonical name", func(d *registry.Department) { d.CanonicalName = " " }, "canonical_name"},
		{"unknown salary range", func(d *registry.Department) {
			d.SalaryDistribution["2023"][0].Range = "30k-50k"
		}, "salary_distribution"},
		{"unknown age range", func(d *registry.Department) {
			d.HeadCount["2022"] = 1
			d.AgeDistribution = registry.Distribution{"2022": {{Range: "20-30", Count: 1}}}
		}, "age_distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := staffed()
			tt.mutate(&d)
			issues := validation.Department(&d)
			require.Len(t, issues, 1)
			assert.Equal(t, validation.SeverityError, issues[0].Severity)
			assert.Equal(t, tt.field, issues[0].Field)
		})
	}
}

func TestAllocation(t *testing.T) {
	funds := registry.NewMemory()
	funds.PutFund(registry.Fund{FundCode: "0001", FundName: "General Fund"})

	valid := registry.Allocation{
		OrgCode:     "0250",
		ProjectCode: "0150010",
		FundingType: registry.StateOperations,
		FundCode:    "0001",
		FiscalYear:  "2023-24",
		Amount:      decimal.NewFromInt(10),
	}
	assert.Empty(t, validation.Allocation(valid, funds.Funds()))

	tests := []struct {
		name   string
		mutate func(*registry.Allocation)
		field  string
	}{
		{"short org code", func(a *registry.Allocation) { a.OrgCode = "25" }, "org_code"},
		{"short project code", func(a *registry.Allocation) { a.ProjectCode = "0150" }, "project_code"},
		{"unknown funding type", func(a *registry.Allocation) { a.FundingType = "Capital Outlay" }, "funding_type"},
		{"bad fiscal year", func(a *registry.Allocation) { a.FiscalYear = "2023" }, "fiscal_year"},
		{"unregistered fund", func(a *registry.Allocation) { a.FundCode = "0042" }, "fund_code"},
		{"malformed fund", func(a *registry.Allocation) { a.FundCode = "" }, "fund_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			issues := validation.Allocation(a, funds.Funds())
			require.Len(t, issues, 1)
			assert.Equal(t, tt.field, issues[0].Field)
		})
	}
}

func TestValidateRepository(t *testing.T) {
	repo := registry.NewMemory()
	d := staffed()
	d.HeadCount["2023"] = 7
	require.NoError(t, repo.PutDepartment(d))
	repo.PutAllocation(registry.Allocation{
		OrgCode:     "0250",
		ProjectCode: "0150010",
		FundingType: registry.LocalAssistance,
		FundCode:    "0001",
		FiscalYear:  "2023-24",
	})

	report := validation.Validate(repo)
	assert.Equal(t, 1, report.Errors())
	assert.Equal(t, 1, report.Warnings())
	assert.False(t, report.IsValid())
	assert.Contains(t, report.String(), "Validation found 1 errors and 1 warnings")

	tl := logging.NewTestLogger(t)
	report.Log(logging.WithLogger(context.Background(), tl.Logger), "post-merge")
	assert.Equal(t, 3, tl.Count())
	assert.True(t, tl.Contains(`"stage":"post-merge"`))
	assert.True(t, tl.Contains(`"errors":1`))
}

func TestEmptyReport(t *testing.T) {
	report := validation.Validate(registry.NewMemory())
	assert.True(t, report.IsValid())
	assert.Equal(t, "Validation passed", report.String())
}
