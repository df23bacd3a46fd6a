// Package app wires configuration, logging and the registry into the
// budgetmap CLI. Commands receive the App through the
// application.Application interface.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/extract"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/pipeline"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
	"github.com/civicledger/budgetmap/pkg/save"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

// App is the budgetmap application with its dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// Repository is loaded on first use.
	mu   sync.Mutex
	repo *registry.Repository
}

var _ application.Application = (*App)(nil)

// New creates an App with configuration loaded from the default locations.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{version: version, commit: commit, date: date}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config
	app.configureLogging()

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// configureLogging rebuilds the console logger. The global level never rises
// above info so session logs keep every informational event.
func (a *App) configureLogging() {
	logger := NewLogger(a.config)
	a.logger = &logger
	zerolog.SetGlobalLevel(min(consoleLevel(a.config), zerolog.InfoLevel))
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Repository opens the registry at the configured path, once.
func (a *App) Repository() (*registry.Repository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.repo != nil {
		return a.repo, nil
	}

	format, ok := save.ParseFormat(a.config.RegistryFormat)
	if !ok {
		return nil, errors.NewValidationError("registry_format", a.config.RegistryFormat, "must be yaml or json")
	}
	repo, err := registry.Open(a.config.RegistryPath, registry.WithFormat(format))
	if err != nil {
		return nil, errors.WrapResource("open", "registry", a.config.RegistryPath, err)
	}
	a.logger.Debug().
		Str("path", a.config.RegistryPath).
		Int("departments", repo.Departments().Len()).
		Int("allocations", repo.Allocations().Len()).
		Msg("Loaded registry")
	a.repo = repo
	return repo, nil
}

// PipelineOptions maps configuration onto pipeline options.
func (a *App) PipelineOptions() []pipeline.Option {
	c := a.config
	ex := extract.DefaultOptions()
	ex.LeftMarginTolerance = c.LeftMarginTolerance

	return []pipeline.Option{
		pipeline.WithResolver(resolver.New(resolver.WithThresholds(c.AutoMatchThreshold, c.CandidateThreshold))),
		pipeline.WithEngineOptions(
			reconcile.WithDescriptionThreshold(c.DescriptionSimilarity),
			reconcile.WithFundGroup(c.FundGroup),
		),
		pipeline.WithExtractOptions(ex),
		pipeline.WithWorkforceOptions(workforce.Options{Delimiter: c.Delimiter(), Columns: c.WorkforceColumns}),
	}
}

// Session opens a session log in the configured log directory, mirroring
// events at the console level to console.
func (a *App) Session(console io.Writer) (*logging.Session, error) {
	var opts []logging.SessionOption
	if console != nil {
		cw := zerolog.ConsoleWriter{Out: console, NoColor: a.config.NoColor, TimeFormat: "15:04:05"}
		opts = append(opts, logging.WithConsole(cw, consoleLevel(a.config)))
	}
	s, err := logging.NewSession(a.config.LogDir, opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("session_id", s.ID).Str("path", s.Path).Msg("Opened session log")
	return s, nil
}

// Shutdown persists anything still dirty. Called when a command fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	repo := a.repo
	a.mu.Unlock()
	if repo == nil || len(repo.Dirty()) == 0 {
		return nil
	}
	if err := repo.Commit(); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Failed to persist registry during shutdown")
		return err
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		a.configureLogging()
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command output and operator prompts from stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithRepository sets the registry, bypassing the configured path.
func WithRepository(repo *registry.Repository) Option {
	return func(a *App) error {
		a.repo = repo
		return nil
	}
}
