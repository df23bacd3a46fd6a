package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
)

var fixedClock = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

func newEngine(t *testing.T) (*reconcile.Engine, *registry.Repository) {
	t.Helper()
	repo := registry.NewMemory(registry.WithClock(fixedClock))
	return reconcile.New(repo), repo
}

func allocation(project, fund, name, year string, amount int64) registry.Allocation {
	return registry.Allocation{
		OrgCode:     "0250",
		ProjectCode: project,
		FundingType: registry.StateOperations,
		FundCode:    fund,
		FundName:    name,
		FiscalYear:  year,
		Amount:      decimal.NewFromInt(amount),
	}
}

func generalFund() []registry.Allocation {
	return []registry.Allocation{
		allocation("0150010", "0001", "General Fund", "2022-23", 100),
		allocation("0150010", "0001", "General Fund", "2023-24", 200),
		allocation("0150010", "0001", "General Fund", "2024-25", 300),
	}
}

func TestApplyBudgetGeneralFund(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	dept, err := repo.CreateDepartment("Judicial Branch", "0250")
	require.NoError(t, err)

	cs := engine.DiffBudget(ctx, "0250", "budget.txt", generalFund(), nil)
	assert.Equal(t, 3, cs.Count(reconcile.GroupAllocations, reconcile.ChangeAdd))
	assert.Equal(t, 1, cs.Count(reconcile.GroupFunds, reconcile.ChangeAdd))

	stats, err := engine.ApplyBudget(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.AllocationsAdded)
	assert.Equal(t, 1, stats.FundsAdded)

	rows := repo.Allocations().ByOrgCode("0250")
	require.Len(t, rows, 3)
	want := map[string]int64{"2022-23": 100, "2023-24": 200, "2024-25": 300}
	for _, row := range rows {
		assert.Equal(t, "0001", row.FundCode)
		assert.Equal(t, "0150010", row.ProjectCode)
		assert.Equal(t, 1, row.OccurrenceCount)
		assert.True(t, decimal.NewFromInt(want[row.FiscalYear]).Equal(row.Amount), row.FiscalYear)
	}

	fund, ok := repo.Funds().Get("0001")
	require.True(t, ok)
	assert.Equal(t, "General Fund", fund.FundName)
	assert.Equal(t, constants.DefaultFundGroup, fund.FundGroup)

	stored, _ := repo.Departments().Get(dept.ID)
	assert.True(t, decimal.NewFromInt(200).Equal(stored.Spending["2023"]))
}

func TestApplyBudgetIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	_, err := repo.CreateDepartment("Judicial Branch", "0250")
	require.NoError(t, err)

	_, err = engine.ApplyBudget(ctx, engine.DiffBudget(ctx, "0250", "budget.txt", generalFund(), nil))
	require.NoError(t, err)
	require.NoError(t, repo.Commit())
	before := repo.Allocations().List()

	cs := engine.DiffBudget(ctx, "0250", "budget.txt", generalFund(), nil)
	assert.False(t, cs.HasChanges())
	assert.Equal(t, "No changes detected", cs.String())

	stats, err := engine.ApplyBudget(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.AllocationsUnchanged)
	assert.Zero(t, stats.AllocationsAdded)
	assert.Zero(t, stats.AllocationsOverwritten)
	assert.Zero(t, stats.FundsAdded)
	assert.Empty(t, repo.Dirty())
	assert.Equal(t, before, repo.Allocations().List())
}

func TestApplyBudgetOverwrite(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	tl := logging.NewTestLogger(t)
	ctx = logging.WithLogger(ctx, tl.Logger)

	_, err := engine.ApplyBudget(ctx, engine.DiffBudget(ctx, "0250", "a.txt", generalFund(), nil))
	require.NoError(t, err)

	revised := generalFund()
	revised[1].Amount = decimal.NewFromInt(250)
	cs := engine.DiffBudget(ctx, "0250", "b.txt", revised, nil)
	assert.Equal(t, 1, cs.Count(reconcile.GroupAllocations, reconcile.ChangeOverwrite))
	assert.Equal(t, 2, cs.Count(reconcile.GroupAllocations, reconcile.ChangeUnchanged))

	stats, err := engine.ApplyBudget(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AllocationsOverwritten)

	row, ok := repo.Allocations().Get(revised[1].Key())
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(250).Equal(row.Amount))
	assert.Equal(t, 1, row.OccurrenceCount)
	assert.Equal(t, "b.txt", row.SourceFile)

	assert.True(t, tl.Contains(`"event":"allocation_overwritten"`))
	assert.True(t, tl.Contains(`"before":"200"`))
	assert.True(t, tl.Contains(`"after":"250"`))
}

func TestDiffBudgetDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)

	allocs := append(generalFund(), allocation("0150010", "0001", "General Fund", "2022-23", 999))
	cs := engine.DiffBudget(ctx, "0250", "a.txt", allocs, nil)
	assert.Equal(t, 1, cs.Duplicates)
	require.Len(t, cs.Allocations, 3)

	stats, err := engine.ApplyBudget(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AllocationsDuplicate)

	row, ok := repo.Allocations().Get(allocs[3].Key())
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(999).Equal(row.Amount))
}

func TestDiffFunds(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		existing registry.Fund
		incoming string
		wantType reconcile.ChangeType
		wantDesc string
		changes  int
	}{
		{
			name:     "rename follows mirrored description",
			existing: registry.Fund{FundCode: "0001", FundName: "General", FundGroup: "G", Description: "General"},
			incoming: "General Fund",
			wantType: reconcile.ChangeUpdate,
			wantDesc: "General Fund",
			changes:  1,
		},
		{
			name:     "rename keeps curated description",
			existing: registry.Fund{FundCode: "0001", FundName: "General", FundGroup: "G", Description: "Main operating fund"},
			incoming: "General Fund",
			wantType: reconcile.ChangeUpdate,
			wantDesc: "Main operating fund",
			changes:  1,
		},
		{
			name:     "same name",
			existing: registry.Fund{FundCode: "0001", FundName: "General Fund", FundGroup: "G"},
			incoming: "General Fund",
			changes:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, repo := newEngine(t)
			repo.PutFund(tt.existing)

			cs := engine.DiffBudget(ctx, "0250", "a.txt",
				[]registry.Allocation{allocation("0150010", "0001", tt.incoming, "2022-23", 1)}, nil)
			require.Len(t, cs.Funds, tt.changes)
			if tt.changes == 0 {
				return
			}
			assert.Equal(t, tt.wantType, cs.Funds[0].Type)
			assert.Equal(t, tt.wantDesc, cs.Funds[0].Fund.Description)
			assert.Equal(t, "G", cs.Funds[0].Fund.FundGroup)

			stats, err := engine.ApplyBudget(ctx, cs)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.FundsUpdated)
			got, _ := repo.Funds().Get("0001")
			assert.Equal(t, tt.incoming, got.FundName)
		})
	}
}

func TestDiffPrograms(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	repo.PutProgram(registry.Program{ProjectCode: "0150010", Name: "Supreme Court", Description: "Hears appeals.", SourceFile: "a.txt"})

	cs := engine.DiffBudget(ctx, "0250", "a.txt", nil, []registry.Program{
		{ProjectCode: "0150010", Name: "Supreme Court of California", Description: "Hears appeals."},
		{ProjectCode: "0150019", Name: "Courts of Appeal", Description: "Intermediate courts."},
		{ProjectCode: "0150019", Name: "Courts of Appeal", Description: "Intermediate courts."},
	})
	require.Len(t, cs.Programs, 2)
	assert.Equal(t, reconcile.ChangeUpdate, cs.Programs[0].Type)
	assert.Equal(t, "Supreme Court", cs.Programs[0].PreviousName)
	assert.Equal(t, reconcile.ChangeAdd, cs.Programs[1].Type)

	stats, err := engine.ApplyBudget(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ProgramsAdded)
	assert.Equal(t, 1, stats.ProgramsUpdated)
	assert.Equal(t, 2, repo.Programs().Len())
}

func TestProposeDescription(t *testing.T) {
	engine, _ := newEngine(t)

	tests := []struct {
		name     string
		existing string
		proposed string
		want     bool
	}{
		{"empty existing", "", "Runs the courts.", true},
		{"empty proposal", "Runs the courts.", "  ", false},
		{"identical", "Runs the courts.", "Runs the courts.", false},
		{"near identical", "Runs the state courts.", "Runs the state courts", false},
		{"different", "Runs the courts.", "Manages water storage and delivery.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.ProposeDescription(tt.existing, tt.proposed)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("new department", func(t *testing.T) {
		engine, repo := newEngine(t)
		ch := engine.DiffIdentity(nil, "Judicial Branch", "0250", "The judiciary.")
		assert.True(t, ch.IsNew())
		assert.Contains(t, ch.String(), `new department "Judicial Branch" (org code 0250)`)

		id, stats, err := engine.ApplyIdentity(ctx, ch)
		require.NoError(t, err)
		assert.Equal(t, registry.DepartmentID("judicial_branch"), id)
		assert.Equal(t, 1, stats.DepartmentsCreated)
		dept, ok := repo.Departments().ByOrgCode("0250")
		require.True(t, ok)
		assert.Equal(t, "The judiciary.", dept.Description)
	})

	t.Run("matched department gains code and alias", func(t *testing.T) {
		engine, repo := newEngine(t)
		dept, err := repo.CreateDepartment("Department of Water Resources", "")
		require.NoError(t, err)

		ch := engine.DiffIdentity(dept, "Water Resources", "3860", "")
		assert.True(t, ch.SetOrgCode)
		assert.Equal(t, "Water Resources", ch.AddAlias)
		assert.Nil(t, ch.Description)

		_, stats, err := engine.ApplyIdentity(ctx, ch)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.AliasesAdded)
		got, _ := repo.Departments().Get(dept.ID)
		assert.Equal(t, "3860", got.OrgCode)
		assert.Equal(t, []string{"Water Resources"}, got.Aliases)
	})

	t.Run("cropped description is written as given", func(t *testing.T) {
		engine, repo := newEngine(t)
		dept, err := repo.CreateDepartment("Judicial Branch", "0250")
		require.NoError(t, err)

		ch := engine.DiffIdentity(dept, "JUDICIAL BRANCH", "0250", "line one\nline two")
		assert.False(t, ch.SetOrgCode)
		assert.Empty(t, ch.AddAlias)
		require.NotNil(t, ch.Description)
		ch.Description.Proposed = "line one"

		_, stats, err := engine.ApplyIdentity(ctx, ch)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DescriptionsUpdated)
		got, _ := repo.Departments().Get(dept.ID)
		assert.Equal(t, "line one", got.Description)
	})

	t.Run("taken org code is dropped for new department", func(t *testing.T) {
		engine, repo := newEngine(t)
		_, err := repo.CreateDepartment("Judicial Branch", "0250")
		require.NoError(t, err)

		id, _, err := engine.ApplyIdentity(ctx, engine.DiffIdentity(nil, "Courts", "0250", ""))
		require.NoError(t, err)
		got, _ := repo.Departments().Get(id)
		assert.Empty(t, got.OrgCode)
	})
}

func TestApplyWorkforce(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	tl := logging.NewTestLogger(t)
	ctx = logging.WithLogger(ctx, tl.Logger)
	dept, err := repo.CreateDepartment("Judicial Branch", "0250")
	require.NoError(t, err)

	year := registry.Workforce{
		Year:         "2023",
		HeadCount:    3,
		Wages:        decimal.NewFromInt(150000),
		Compensation: decimal.NewFromInt(186000),
		Salary:       []registry.Bucket{{Range: "30000-49999", Count: 2}, {Range: "50000-69999", Count: 1}},
	}
	ch := engine.DiffWorkforce(dept, []registry.Workforce{year})
	assert.Empty(t, ch.Replaced)
	assert.Contains(t, ch.String(), "2023: 3 employees, wages 150000.00, compensation 186000.00")

	stats, err := engine.ApplyWorkforce(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WorkforceYears)

	got, _ := repo.Departments().Get(dept.ID)
	assert.Equal(t, 3, got.HeadCount["2023"])
	assert.Equal(t, 3, got.SalaryDistribution.Sum("2023"))
	assert.True(t, decimal.NewFromInt(186000).Equal(got.Compensation["2023"]))
	assert.True(t, tl.Contains(`"event":"workforce_recorded"`))
	assert.True(t, tl.Contains(`"compensation":"186000"`))

	again := engine.DiffWorkforce(got, []registry.Workforce{year})
	assert.Equal(t, []string{"2023"}, again.Replaced)
}

func TestApplyOrgStructure(t *testing.T) {
	ctx := context.Background()
	engine, repo := newEngine(t)
	dept, err := repo.CreateDepartment("Judicial Branch", "0250")
	require.NoError(t, err)

	stats, err := engine.ApplyOrgStructure(ctx, []reconcile.OrgChange{
		{DepartmentID: dept.ID, Level: "1", ParentAgency: "Judicial"},
		{DepartmentID: dept.ID, Level: "1", ParentAgency: "Judicial", PreviousLevel: "1", PreviousParent: "Judicial"},
		{DepartmentID: "missing", Level: "2"},
	})
	assert.Error(t, err)
	assert.Equal(t, 1, stats.OrgLevelsSet)

	got, _ := repo.Departments().Get(dept.ID)
	assert.Equal(t, "1", got.OrgLevel)
	assert.Equal(t, "Judicial", got.ParentAgency)
}

func TestStatsAdd(t *testing.T) {
	total := reconcile.Stats{AllocationsAdded: 3, FundsAdded: 1}
	total.Add(reconcile.Stats{AllocationsAdded: 2, AllocationsOverwritten: 1, PersistFailures: 1})
	assert.Equal(t, 5, total.AllocationsAdded)
	assert.Equal(t, 1, total.AllocationsOverwritten)
	assert.Equal(t, 1, total.FundsAdded)
	assert.Equal(t, 1, total.PersistFailures)
}

func TestEngineCommit(t *testing.T) {
	ctx := context.Background()
	repo, err := registry.Open(t.TempDir())
	require.NoError(t, err)
	engine := reconcile.New(repo)

	_, err = engine.ApplyBudget(ctx, engine.DiffBudget(ctx, "0250", "a.txt", generalFund(), nil))
	require.NoError(t, err)
	require.NotEmpty(t, repo.Dirty())
	require.NoError(t, engine.Commit(ctx))
	assert.Empty(t, repo.Dirty())

	reopened, err := registry.Open(repo.Dir())
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Allocations().Len())
	assert.Equal(t, 1, reopened.Funds().Len())
}
