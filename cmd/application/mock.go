package application

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/pipeline"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// Mock implements Application for command tests. A nil function field yields
// a zero value; Session then logs to io.Discard.
type Mock struct {
	RepositoryFunc      func() (*registry.Repository, error)
	PipelineOptionsFunc func() []pipeline.Option
	SessionFunc         func(console io.Writer) (*logging.Session, error)
	LoggerFunc          func() *zerolog.Logger
	Format              string
}

var _ Application = (*Mock)(nil)

// Repository returns the mock repository or an empty in-memory one.
func (m *Mock) Repository() (*registry.Repository, error) {
	if m.RepositoryFunc != nil {
		return m.RepositoryFunc()
	}
	return registry.NewMemory(), nil
}

// PipelineOptions returns the mock options.
func (m *Mock) PipelineOptions() []pipeline.Option {
	if m.PipelineOptionsFunc != nil {
		return m.PipelineOptionsFunc()
	}
	return nil
}

// Session returns the mock session.
func (m *Mock) Session(console io.Writer) (*logging.Session, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc(console)
	}
	return logging.NewSessionWriter(io.Discard, ""), nil
}

// Logger returns the mock logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string { return m.Format }

// Version returns a fixed development version.
func (m *Mock) Version() string { return "dev" }
