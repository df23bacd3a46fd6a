package validate_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/cmd/budgetmap/cmd/validate"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/validation"
)

func run(t *testing.T, repo *registry.Repository, format string) (string, error) {
	t.Helper()
	app := &application.Mock{
		Format:         format,
		RepositoryFunc: func() (*registry.Repository, error) { return repo, nil },
	}
	cmd := validate.NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCleanRegistry(t *testing.T) {
	out, err := run(t, registry.NewMemory(), "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Validation passed")
}

func TestValidateReportsErrors(t *testing.T) {
	repo := registry.NewMemory()
	repo.PutAllocation(registry.Allocation{
		OrgCode:     "0250",
		ProjectCode: "0150010",
		FundingType: registry.StateOperations,
		FundCode:    "0001",
		FiscalYear:  "2023-24",
		Amount:      decimal.NewFromInt(10),
	})

	out, err := run(t, repo, "json")
	require.Error(t, err)

	var report validation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "fund_code", report.Issues[0].Field)
	assert.Contains(t, report.Issues[0].Message, "not registered")
}
