package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger is a trace-level JSON logger writing to memory.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// NewTestLogger creates a TestLogger and lowers the global level to trace
// for the duration of the test.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	buf := &bytes.Buffer{}
	l := zerolog.New(buf).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	return &TestLogger{Logger: &l, Buffer: buf}
}

// Output returns everything logged so far.
func (tl *TestLogger) Output() string { return tl.Buffer.String() }

// Lines returns one JSON document per entry.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.Output())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Contains reports whether any entry contains substr.
func (tl *TestLogger) Contains(substr string) bool { return strings.Contains(tl.Output(), substr) }

// Count returns the number of entries.
func (tl *TestLogger) Count() int { return len(tl.Lines()) }

// Clear discards captured entries.
func (tl *TestLogger) Clear() { tl.Buffer.Reset() }

// CaptureLoggingForTest routes the default logger into a TestLogger until the
// test ends.
func CaptureLoggingForTest(t testing.TB) *TestLogger {
	t.Helper()
	prev := *Default()
	tl := NewTestLogger(t)
	SetDefault(*tl.Logger)
	t.Cleanup(func() { SetDefault(prev) })
	return tl
}
