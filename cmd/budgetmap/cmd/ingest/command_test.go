package ingest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/cmd/budgetmap/cmd/ingest"
	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/pipeline"
	"github.com/civicledger/budgetmap/pkg/registry"
)

const budget = `# === PAGE 1 === [size: 612x792]
[0:0:72,50] 0250 Judicial Branch
[1:0:72,70] The Judicial Branch interprets the law.
[2:0:72,90] 3-YEAR EXPENDITURES AND POSITIONS
# === PAGE 2 === [size: 612x792]
[0:0:72,20] 0250 Judicial Branch - Continued
[1:0:72,40] DETAILED EXPENDITURES BY PROGRAM
[1:1:300,40] 2022-23 2023-24 2024-25
[2:0:72,80] 0150010 Supreme Court
[3:0:90,100] State Operations:
[4:0:90,120] 0001 General Fund
[4:1:400,120] $100
[4:2:470,120] $200
[4:3:540,120] $300
`

func setup(t *testing.T) (*application.Mock, *registry.Repository, string) {
	t.Helper()
	repo := registry.NewMemory()
	mock := &application.Mock{
		Format: "json",
		RepositoryFunc: func() (*registry.Repository, error) {
			return repo, nil
		},
	}
	path := filepath.Join(t.TempDir(), "budget.txt")
	require.NoError(t, os.WriteFile(path, []byte(budget), 0o644))
	return mock, repo, path
}

func execute(t *testing.T, app *application.Mock, args ...string) (*pipeline.Summary, error) {
	t.Helper()
	cmd := ingest.NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	// Operator prompts share the output stream; the summary comes last.
	idx := bytes.LastIndex(out.Bytes(), []byte("{\n  \"files\""))
	if idx < 0 {
		return nil, err
	}
	var s pipeline.Summary
	require.NoError(t, json.Unmarshal(out.Bytes()[idx:], &s))
	return &s, err
}

func TestIngestBudgetYes(t *testing.T) {
	app, repo, path := setup(t)

	s, err := execute(t, app, "budget", "--yes", path)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.Files)
	assert.Equal(t, 3, s.AllocationsAdded)
	assert.Equal(t, 1, s.DepartmentsCreated)
	assert.Equal(t, 3, repo.Allocations().Len())
}

func TestIngestRecordAndReplay(t *testing.T) {
	app, repo, path := setup(t)
	script := filepath.Join(t.TempDir(), "answers.yaml")

	_, err := execute(t, app, "budget", "--yes", "--record", script, path)
	require.NoError(t, err)

	loaded, err := decision.LoadScript(script)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Answers)

	// Replaying into a fresh registry reproduces the same merge.
	fresh := registry.NewMemory()
	app.RepositoryFunc = func() (*registry.Repository, error) { return fresh, nil }
	s, err := execute(t, app, "budget", "--script", script, path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.AllocationsAdded)
	assert.Equal(t, repo.Allocations().Len(), fresh.Allocations().Len())
}

func TestIngestTerminalAbortOnEOF(t *testing.T) {
	app, repo, path := setup(t)

	s, err := execute(t, app, "budget", path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.FilesAborted)
	assert.Zero(t, repo.Allocations().Len())
}

func TestIngestFlagErrors(t *testing.T) {
	app, _, path := setup(t)

	_, err := execute(t, app, "budget", "--yes", "--script", "answers.yaml", path)
	assert.Error(t, err)

	_, err = execute(t, app, "budget")
	assert.Error(t, err, "at least one file is required")
}

func TestIngestMissingFileFails(t *testing.T) {
	app, _, _ := setup(t)

	s, err := execute(t, app, "workforce", "--yes", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.FilesFailed)
}
