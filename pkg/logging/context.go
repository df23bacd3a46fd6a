package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	transactionKey
)

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// WithField returns a context whose logger carries key.
func WithField(ctx context.Context, key string, value any) context.Context {
	l := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &l)
}

// WithFields is WithField for several keys.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	c := FromContext(ctx).With()
	for k, v := range fields {
		c = addField(c, k, v)
	}
	l := c.Logger()
	return WithLogger(ctx, &l)
}

// WithFile tags the logger with the source file being ingested.
func WithFile(ctx context.Context, path string) context.Context {
	return WithField(ctx, "file", path)
}

// WithDepartment tags the logger with the org code being reconciled.
func WithDepartment(ctx context.Context, orgCode string) context.Context {
	return WithField(ctx, "org_code", orgCode)
}

// WithTransaction tags the logger with a per-file transaction id.
func WithTransaction(ctx context.Context, id string) context.Context {
	return WithField(context.WithValue(ctx, transactionKey, id), "transaction_id", id)
}

// Transaction returns the transaction id in ctx, if any.
func Transaction(ctx context.Context) string {
	id, _ := ctx.Value(transactionKey).(string)
	return id
}

func addField(c zerolog.Context, key string, value any) zerolog.Context {
	switch v := value.(type) {
	case string:
		return c.Str(key, v)
	case int:
		return c.Int(key, v)
	case bool:
		return c.Bool(key, v)
	case float64:
		return c.Float64(key, v)
	case error:
		return c.AnErr(key, v)
	default:
		return c.Interface(key, v)
	}
}
