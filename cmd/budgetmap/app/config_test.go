package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultRegistryPath, config.RegistryPath)
	assert.Equal(t, "yaml", config.RegistryFormat)
	assert.Equal(t, constants.AutoMatchThreshold, config.AutoMatchThreshold)
	assert.Equal(t, constants.CandidateThreshold, config.CandidateThreshold)
	assert.Equal(t, constants.DescriptionSimilarityThreshold, config.DescriptionSimilarity)
	assert.Equal(t, constants.LeftMarginTolerance, config.LeftMarginTolerance)
	assert.Equal(t, ',', config.Delimiter())
	assert.Equal(t, workforce.DefaultColumns(), config.WorkforceColumns)
	assert.Equal(t, "auto", config.LogFormat)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("BUDGETMAP_REGISTRY_PATH", "/srv/registry")
	t.Setenv("BUDGETMAP_AUTO_MATCH_THRESHOLD", "90")
	t.Setenv("BUDGETMAP_WORKFORCE_DELIMITER", "|")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/registry", config.RegistryPath)
	assert.Equal(t, 90.0, config.AutoMatchThreshold)
	assert.Equal(t, '|', config.Delimiter())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budgetmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`registry_path: data/registry
registry_format: json
description_similarity: 70
workforce:
  delimiter: ";"
  columns:
    year: yr
    entity_name: agency
    base_pay: base
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, filepath.Join(dir, "data/registry"), config.RegistryPath)
	assert.Equal(t, "json", config.RegistryFormat)
	assert.Equal(t, 70.0, config.DescriptionSimilarity)
	assert.Equal(t, ';', config.Delimiter())
	assert.Equal(t, "yr", config.WorkforceColumns.Year)
	assert.Equal(t, "agency", config.WorkforceColumns.EntityName)
	assert.Equal(t, "base", config.WorkforceColumns.BasePay)
	assert.Equal(t, workforce.DefaultColumns().EntityCode, config.WorkforceColumns.EntityCode)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AutoMatchThreshold:    80,
			CandidateThreshold:    60,
			DescriptionSimilarity: 85,
			LeftMarginTolerance:   25,
			WorkforceDelimiter:    ",",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above 100", func(c *Config) { c.AutoMatchThreshold = 120 }},
		{"negative similarity", func(c *Config) { c.DescriptionSimilarity = -1 }},
		{"candidate above auto", func(c *Config) { c.CandidateThreshold = 90 }},
		{"negative tolerance", func(c *Config) { c.LeftMarginTolerance = -5 }},
		{"long delimiter", func(c *Config) { c.WorkforceDelimiter = "||" }},
		{"empty delimiter", func(c *Config) { c.WorkforceDelimiter = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.True(t, errors.IsValidationError(c.Validate()))
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	c := &Config{Format: "table", RegistryPath: "./registry"}
	c.UpdateFromFlags(true, false, false, "", "trace", "/tmp/reg")
	assert.True(t, c.Verbose)
	assert.Equal(t, "table", c.Format)
	assert.Equal(t, "trace", c.LogLevel)
	assert.Equal(t, "/tmp/reg", c.RegistryPath)
}
