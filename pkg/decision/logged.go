package decision

import (
	"context"
	"strings"

	"github.com/civicledger/budgetmap/pkg/logging"
)

// Logged writes every decision to the context logger as a "decision" event.
type Logged struct {
	next Decider
}

// NewLogged wraps next.
func NewLogged(next Decider) *Logged {
	return &Logged{next: next}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// Confirm implements Decider.
func (l *Logged) Confirm(ctx context.Context, prompt string) (bool, error) {
	ok, err := l.next.Confirm(ctx, prompt)
	logging.FromContext(ctx).Info().
		Str("event", "decision").
		Str("kind", "confirm").
		Str("prompt", firstLine(prompt)).
		Bool("approved", ok).
		Err(err).
		Msg("Operator decision")
	return ok, err
}

// Select implements Decider.
func (l *Logged) Select(ctx context.Context, prompt string, options []string) (int, error) {
	idx, err := l.next.Select(ctx, prompt, options)
	ev := logging.FromContext(ctx).Info().
		Str("event", "decision").
		Str("kind", "select").
		Str("prompt", firstLine(prompt)).
		Int("options", len(options)).
		Err(err)
	if idx >= 0 && idx < len(options) {
		ev = ev.Str("selected", options[idx])
	} else {
		ev = ev.Bool("skipped", true)
	}
	ev.Msg("Operator decision")
	return idx, err
}

// Description implements Decider.
func (l *Logged) Description(ctx context.Context, subject, existing, proposed string) (DescriptionChoice, error) {
	c, err := l.next.Description(ctx, subject, existing, proposed)
	logging.FromContext(ctx).Info().
		Str("event", "decision").
		Str("kind", "description").
		Str("subject", subject).
		Str("action", c.Action.String()).
		Str("ranges", FormatRanges(c.Ranges)).
		Err(err).
		Msg("Operator decision")
	return c, err
}
