// Package logging provides structured logging for budgetmap on zerolog.
//
// Two streams exist. The console logger reports progress on stderr, as
// colored text on a terminal and JSON otherwise. The session log (see
// Session) is an append-only JSON record of every decision, match and
// mutation of one run, kept apart from the operator prompts.
//
//	ctx := logging.WithLogger(context.Background(), logging.Default())
//	ctx = logging.WithFile(ctx, "2024-budget.txt")
//	logging.FromContext(ctx).Debug().Msg("Segmenting document")
package logging

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = bootstrapLogger()

// bootstrapLogger is used until the CLI applies its configuration. It honors
// LOG_LEVEL and LOG_FORMAT so library callers get sensible output too.
func bootstrapLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	l := zerolog.New(os.Stderr)
	if isTerminal(os.Stderr) && os.Getenv("LOG_FORMAT") != "json" {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		})
	}
	return l.Level(level).With().Timestamp().Logger()
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
