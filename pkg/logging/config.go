package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/pkg/constants"
)

// Config describes the console logger.
type Config struct {
	Level  string // trace, debug, info, warn, error, off
	Format string // auto, json, console
	// Output is stderr, stdout, discard or a file path to append to.
	Output     string
	TimeFormat string // kitchen, rfc3339, unix or a Go layout
	NoColor    bool
	AddCaller  bool
	// Fields are attached to every event.
	Fields map[string]any
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}

// NewLoggerFromConfig builds a logger from cfg and sets zerolog's global
// level to match.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level := levelFromString(cfg.Level)
	zerolog.SetGlobalLevel(level)

	c := zerolog.New(formatWriter(cfg, openOutput(cfg.Output))).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		c = c.Caller()
	}
	for k, v := range cfg.Fields {
		c = addField(c, k, v)
	}
	return c.Logger()
}

// openOutput resolves the output name. An unwritable file falls back to
// stderr rather than losing the run's output.
func openOutput(name string) io.Writer {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr
	}
	return f
}

// formatWriter wraps out in a ConsoleWriter for console output. Auto picks
// console only for a terminal.
func formatWriter(cfg *Config, out io.Writer) io.Writer {
	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok && isTerminal(f) {
			format = "console"
		}
	}
	if format != "console" && format != "pretty" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: timeLayout(cfg.TimeFormat), NoColor: cfg.NoColor}
}

var levelAliases = map[string]zerolog.Level{
	"":        zerolog.InfoLevel,
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
	"none":    zerolog.Disabled,
}

func levelFromString(s string) zerolog.Level {
	s = strings.ToLower(s)
	if l, ok := levelAliases[s]; ok {
		return l
	}
	if l, err := zerolog.ParseLevel(s); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

func timeLayout(format string) string {
	switch strings.ToLower(format) {
	case "", "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "unix", "epoch":
		return ""
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}
