package logging_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/budgetmap/pkg/logging"
)

func TestSessionWriter(t *testing.T) {
	var buf bytes.Buffer
	s := logging.NewSessionWriter(&buf, "session-under-test")

	logger, txn := s.BeginTransaction("budget.txt")
	assert.True(t, strings.HasPrefix(txn, "txn-"))

	logger.Info().Str("event", "decision").Bool("approved", true).Msg("Gate")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"session_id":"session-under-test"`)
		assert.Contains(t, line, `"transaction_id":"`+txn+`"`)
	}
	assert.Contains(t, lines[1], `"approved":true`)
	assert.NoError(t, s.Close())
}

func TestNewSession(t *testing.T) {
	dir := t.TempDir()
	s, err := logging.NewSession(dir)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	s.Logger.Info().Msg("run started")
	require.NoError(t, s.Close())

	content, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), s.ID)
	assert.Contains(t, string(content), "run started")
}

func TestSessionConsole(t *testing.T) {
	var file, console bytes.Buffer
	s := logging.NewSessionWriter(&file, "", logging.WithConsole(&console, zerolog.WarnLevel))
	require.NotEmpty(t, s.ID)

	s.Logger.Info().Msg("detail")
	s.Logger.Warn().Msg("progress")

	assert.Equal(t, 2, strings.Count(file.String(), "\n"))
	assert.Equal(t, 1, strings.Count(console.String(), "\n"))
	assert.Contains(t, console.String(), "progress")
}
