package extract_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/extract"
)

func TestClusterPositions(t *testing.T) {
	clusters := extract.ClusterPositions([]float64{100, 31, 10, 30, 12, 32}, 15)
	require.Len(t, clusters, 3)
	assert.Equal(t, extract.Cluster{Median: 11, Min: 10, Max: 12, Count: 2}, clusters[0])
	assert.Equal(t, 31.0, clusters[1].Median)
	assert.Equal(t, 100.0, clusters[2].Median)

	assert.Nil(t, extract.ClusterPositions(nil, 15))

	chained := extract.ClusterPositions([]float64{0, 10, 20, 30}, 15)
	assert.Len(t, chained, 1, "gaps are measured between neighbours")
}

func TestAssign(t *testing.T) {
	clusters := extract.ClusterPositions([]float64{50, 80, 110}, 15)
	bands := extract.Bands(clusters, []string{"A", "1"}, 10)
	require.Len(t, bands, 2)

	assert.Equal(t, "A", extract.Assign(bands, 55))
	assert.Equal(t, "1", extract.Assign(bands, 90))
	assert.Equal(t, "1", extract.Assign(bands, 140), "outside every band picks the nearest")
	assert.Equal(t, "A", extract.Assign(bands, 10))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$1,234", "1234", true},
		{"(1,234)", "-1234", true},
		{"($56)", "-56", true},
		{"-", "0", true},
		{"1,234.50", "1234.5", true},
		{"0", "0", true},
		{"(12", "", false},
		{"2023-24", "", false},
		{"General", "", false},
		{"$", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := extract.ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestExtractOrgStructure(t *testing.T) {
	text := strings.Join([]string{
		"# === PAGE 1 === [size: 612x792]",
		"[0:0:50,10] 0500 Government Operations Agency",
		"[1:0:80,20] 0510 Secretary of Government Operations",
		"[2:0:110,30] 0511 Office of Digital Innovation",
		"[3:0:81,40] 0520 Department of General Services",
		"[4:0:72,50] Narrative text without a code",
		"[5:0:51,60] 0600 Business Agency",
	}, "\n")
	doc, err := document.Parse(strings.NewReader(text), "orgchart.txt")
	require.NoError(t, err)

	entries := extract.ExtractOrgStructure(doc, extract.DefaultOptions())
	require.Len(t, entries, 5)

	levels := make([]string, 0, len(entries))
	for _, e := range entries {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []string{"A", "1", "2", "1", "A"}, levels)
	assert.Equal(t, "", entries[0].Parent)
	assert.Equal(t, "Government Operations Agency", entries[1].Parent)
	assert.Equal(t, "Secretary of Government Operations", entries[2].Parent)
	assert.Equal(t, "Government Operations Agency", entries[3].Parent)
	assert.Equal(t, "", entries[4].Parent)
	assert.True(t, extract.IsAgencyLevel(entries[4].Level))

	agencies := make([]string, 0, len(entries))
	for _, e := range entries {
		agencies = append(agencies, e.Agency)
	}
	assert.Equal(t, []string{
		"",
		"Government Operations Agency",
		"Government Operations Agency",
		"Government Operations Agency",
		"",
	}, agencies, "level 2 entries take the agency above their parent")
}

func TestExtractOrgStructureSplitTokens(t *testing.T) {
	text := strings.Join([]string{
		"# === PAGE 1 === [size: 612x792]",
		"[0:0:50,10] 0500",
		"[0:1:90,10] Government Operations Agency",
		"[1:0:80,20] 0510",
		"[1:1:120,20] Secretary of Government Operations",
		"[2:0:80,30] 0520 Department of General Services",
		"[3:0:80,40] 0530",
		"[3:1:120,40] $1,000",
	}, "\n")
	doc, err := document.Parse(strings.NewReader(text), "orgchart.txt")
	require.NoError(t, err)

	entries := extract.ExtractOrgStructure(doc, extract.DefaultOptions())
	require.Len(t, entries, 3)

	tests := []struct {
		code, name, level, parent string
	}{
		{"0500", "Government Operations Agency", "A", ""},
		{"0510", "Secretary of Government Operations", "1", "Government Operations Agency"},
		{"0520", "Department of General Services", "1", "Government Operations Agency"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.code, entries[i].Code)
		assert.Equal(t, tt.name, entries[i].Name)
		assert.Equal(t, tt.level, entries[i].Level, tt.code)
		assert.Equal(t, tt.parent, entries[i].Parent, tt.code)
	}
	assert.Equal(t, 50.0, entries[0].X, "the entry takes the position of its code")
}
