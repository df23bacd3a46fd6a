package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/errors"
)

// Session is the append-only audit log of one run. Every entry is a JSON line
// tagged with the session id; per-file loggers add a transaction id.
type Session struct {
	ID     string
	Path   string
	Logger zerolog.Logger

	closer io.Closer
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	console      io.Writer
	consoleLevel zerolog.Level
}

// WithConsole mirrors session entries at or above level to w.
func WithConsole(w io.Writer, level zerolog.Level) SessionOption {
	return func(c *sessionConfig) {
		c.console = w
		c.consoleLevel = level
	}
}

// levelFilter drops entries below min.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// NewSession opens a session log file in dir. The file name combines the
// start time and the session id so concurrent runs never share a file.
func NewSession(dir string, opts ...SessionOption) (*Session, error) {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}

	id := uuid.NewString()
	name := fmt.Sprintf("session-%s-%s.jsonl", utc.Now().Format(constants.TimeFormatFilename), id[:8])
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	s := NewSessionWriter(f, id, opts...)
	s.Path = path
	s.closer = f
	return s, nil
}

// NewSessionWriter creates a session that logs to w. Used by tests and by
// callers that manage the destination themselves.
func NewSessionWriter(w io.Writer, id string, opts ...SessionOption) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.console != nil {
		w = zerolog.MultiLevelWriter(w, levelFilter{w: cfg.console, min: cfg.consoleLevel})
	}
	return &Session{
		ID: id,
		Logger: zerolog.New(w).
			Level(zerolog.TraceLevel).
			With().
			Timestamp().
			Str("session_id", id).
			Logger(),
	}
}

// BeginTransaction returns a logger for one source file, tagged with a fresh
// transaction id, and the id itself.
func (s *Session) BeginTransaction(file string) (zerolog.Logger, string) {
	txn := "txn-" + uuid.NewString()
	logger := s.Logger.With().
		Str("transaction_id", txn).
		Str("file", file).
		Logger()
	logger.Info().Str("event", "transaction_start").Msg("Processing file")
	return logger, txn
}

// BeginContext starts a transaction for file and returns a context carrying
// its logger and id.
func (s *Session) BeginContext(ctx context.Context, file string) context.Context {
	logger, txn := s.BeginTransaction(file)
	ctx = context.WithValue(ctx, transactionKey, txn)
	return WithLogger(ctx, &logger)
}

// Context attaches the session logger to ctx.
func (s *Session) Context(ctx context.Context) context.Context {
	return WithLogger(ctx, &s.Logger)
}

// Close flushes and closes the underlying file, if any.
func (s *Session) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
