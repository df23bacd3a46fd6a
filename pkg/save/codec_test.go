package save_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/save"
)

type fund struct {
	Code string `json:"fund_code" yaml:"fund_code"`
	Name string `json:"fund_name" yaml:"fund_name"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want save.Format
		ok   bool
	}{
		{"", save.FormatYAML, true},
		{"YAML", save.FormatYAML, true},
		{"yml", save.FormatYAML, true},
		{"json", save.FormatJSON, true},
		{"toml", save.FormatYAML, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := save.ParseFormat(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
	assert.Equal(t, ".json", save.FormatJSON.Extension())
}

func TestMarshalFormats(t *testing.T) {
	in := []fund{{Code: "0001", Name: "General Fund"}}

	y, err := save.Marshal(in, save.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(y), "fund_code:")
	assert.Contains(t, string(y), "0001")

	j, err := save.Marshal(in, save.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(j), `"fund_code": "0001"`)

	var out []fund
	require.NoError(t, save.Unmarshal(y, save.FormatYAML, "funds.yaml", &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalParseError(t *testing.T) {
	var out []fund
	err := save.Unmarshal([]byte("{not json"), save.FormatJSON, "funds.json", &out)
	require.Error(t, err)

	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "funds.json", pe.File)
	assert.Equal(t, "json", pe.Format)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "funds.yaml")

	require.NoError(t, save.WriteFileAtomic(path, []byte("first")))
	require.NoError(t, save.WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}
