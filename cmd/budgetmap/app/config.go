package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

// EnvPrefix prefixes every environment variable read by budgetmap.
const EnvPrefix = "BUDGETMAP"

// Config holds the application configuration loaded from flags, environment
// variables, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Registry
	RegistryPath   string
	RegistryFormat string
	LogDir         string

	// Matching and layout thresholds
	AutoMatchThreshold    float64
	CandidateThreshold    float64
	DescriptionSimilarity float64
	LeftMarginTolerance   float64
	FundGroup             string

	// Payroll tables
	WorkforceDelimiter string
	WorkforceColumns   workforce.Columns

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. BUDGETMAP_* environment variables
//  3. .env and .env.local
//  4. Config file (.budgetmap.yaml in the working or home directory)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".budgetmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no_color"),
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		RegistryPath:   v.GetString("registry_path"),
		RegistryFormat: v.GetString("registry_format"),
		LogDir:         v.GetString("log_dir"),

		AutoMatchThreshold:    v.GetFloat64("auto_match_threshold"),
		CandidateThreshold:    v.GetFloat64("candidate_threshold"),
		DescriptionSimilarity: v.GetFloat64("description_similarity"),
		LeftMarginTolerance:   v.GetFloat64("left_margin_tolerance"),
		FundGroup:             v.GetString("fund_group"),

		WorkforceDelimiter: v.GetString("workforce.delimiter"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}
	if err := v.UnmarshalKey("workforce.columns", &config.WorkforceColumns); err != nil {
		return nil, errors.NewConfigError("config", "invalid workforce.columns", err)
	}
	fillColumns(&config.WorkforceColumns, workforce.DefaultColumns())
	if config.ConfigFile != "" && v.InConfig("registry_path") {
		config.RegistryPath = resolveRelative(config.ConfigFile, config.RegistryPath)
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	cols := workforce.DefaultColumns()
	v.SetDefault("registry_path", constants.DefaultRegistryPath)
	v.SetDefault("registry_format", "yaml")
	v.SetDefault("log_dir", constants.DefaultLogDir)
	v.SetDefault("auto_match_threshold", constants.AutoMatchThreshold)
	v.SetDefault("candidate_threshold", constants.CandidateThreshold)
	v.SetDefault("description_similarity", constants.DescriptionSimilarityThreshold)
	v.SetDefault("left_margin_tolerance", constants.LeftMarginTolerance)
	v.SetDefault("fund_group", constants.DefaultFundGroup)
	v.SetDefault("workforce.delimiter", string(constants.DefaultWorkforceDelimiter))
	v.SetDefault("workforce.columns.year", cols.Year)
	v.SetDefault("workforce.columns.entity_name", cols.EntityName)
	v.SetDefault("workforce.columns.entity_code", cols.EntityCode)
	v.SetDefault("workforce.columns.base_pay", cols.BasePay)
	v.SetDefault("workforce.columns.pay", cols.Pay)
	v.SetDefault("workforce.columns.benefits", cols.Benefits)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// fillColumns completes a partially configured column set. A config file
// that names only some columns replaces the defaults as a whole section.
func fillColumns(c *workforce.Columns, def workforce.Columns) {
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&c.Year, def.Year},
		{&c.EntityName, def.EntityName},
		{&c.EntityCode, def.EntityCode},
		{&c.BasePay, def.BasePay},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
	if c.Pay == nil {
		c.Pay = def.Pay
	}
	if c.Benefits == nil {
		c.Benefits = def.Benefits
	}
}

// Validate rejects thresholds outside 0-100 and a multi-character delimiter.
func (c *Config) Validate() error {
	for name, t := range map[string]float64{
		"auto_match_threshold":   c.AutoMatchThreshold,
		"candidate_threshold":    c.CandidateThreshold,
		"description_similarity": c.DescriptionSimilarity,
	} {
		if t < 0 || t > 100 {
			return errors.NewValidationError(name, t, "must be between 0 and 100")
		}
	}
	if c.CandidateThreshold > c.AutoMatchThreshold {
		return errors.NewValidationError("candidate_threshold", c.CandidateThreshold, "must not exceed auto_match_threshold")
	}
	if c.LeftMarginTolerance < 0 {
		return errors.NewValidationError("left_margin_tolerance", c.LeftMarginTolerance, "must not be negative")
	}
	if len([]rune(c.WorkforceDelimiter)) != 1 {
		return errors.NewValidationError("workforce.delimiter", c.WorkforceDelimiter, "must be a single character")
	}
	return nil
}

// Delimiter returns the payroll delimiter as a rune.
func (c *Config) Delimiter() rune {
	r := []rune(c.WorkforceDelimiter)
	if len(r) != 1 {
		return constants.DefaultWorkforceDelimiter
	}
	return r[0]
}

// UpdateFromFlags applies parsed command flags, which take precedence over
// the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, registryPath string) {
	c.Verbose = verbose || c.Verbose
	c.Quiet = quiet || c.Quiet
	c.NoColor = noColor || c.NoColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if registryPath != "" {
		c.RegistryPath = registryPath
	}
}

// loadEnvFiles loads .env.local and .env. godotenv never overrides a variable
// that is already set, so .env.local is loaded first to win over .env.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}

// resolveRelative makes a relative registry path relative to the config file
// that named it.
func resolveRelative(configFile, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(configFile), path)
}
