// Package decision is the operator channel: yes/no gates, numbered
// selections and description edits. Deciders can read a terminal, replay a
// script of answers, or approve automatically, and every decision can be
// recorded for replay and written to the session log.
package decision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAborted is returned when the operator aborts. The pipeline discards the
// remaining work for the current file.
var ErrAborted = errors.New("aborted by operator")

// Skip is the selection index meaning "none of these".
const Skip = -1

// Action is what to do with a proposed description.
type Action int

const (
	// Accept replaces the existing description with the proposal.
	Accept Action = iota
	// Keep leaves the existing description untouched.
	Keep
	// Crop accepts only the selected lines of the proposal.
	Crop
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case Keep:
		return "keep"
	case Crop:
		return "crop"
	}
	return "unknown"
}

// DescriptionChoice is the operator's answer to a description proposal.
type DescriptionChoice struct {
	Action Action
	Ranges []Range
}

// Apply returns the description that results from the choice.
func (c DescriptionChoice) Apply(existing, proposed string) string {
	switch c.Action {
	case Accept:
		return proposed
	case Crop:
		return CropLines(proposed, c.Ranges)
	default:
		return existing
	}
}

// Decider asks the operator. Every method may return ErrAborted.
type Decider interface {
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, prompt string) (bool, error)

	// Select picks one of options by index, or Skip.
	Select(ctx context.Context, prompt string, options []string) (int, error)

	// Description decides between an existing and a proposed description.
	Description(ctx context.Context, subject, existing, proposed string) (DescriptionChoice, error)
}

// Range is an inclusive, 1-based line range.
type Range struct {
	From int
	To   int
}

// String renders the range as "a-b", or "a" for a single line.
func (r Range) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// ParseRanges parses "1-5,8-12" style line selections.
func ParseRanges(s string) ([]Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty range list")
	}
	var out []Range
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, isSpan := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", part)
		}
		b := a
		if isSpan {
			if b, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		if a < 1 || b < a {
			return nil, fmt.Errorf("invalid range %q", part)
		}
		out = append(out, Range{From: a, To: b})
	}
	return out, nil
}

// FormatRanges is the inverse of ParseRanges.
func FormatRanges(ranges []Range) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}

// CropLines keeps the selected 1-based lines of text, in range order.
// Ranges past the end of the text are clipped.
func CropLines(text string, ranges []Range) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, r := range ranges {
		for i := r.From; i <= r.To && i <= len(lines); i++ {
			kept = append(kept, lines[i-1])
		}
	}
	return strings.Join(kept, "\n")
}

// NumberLines prefixes each line with its 1-based number.
func NumberLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = fmt.Sprintf("%4d  %s", i+1, l)
	}
	return strings.Join(lines, "\n")
}

// encodeConfirm and its siblings turn a decision into the answer a terminal
// operator would have typed.
func encodeConfirm(ok bool) string {
	if ok {
		return "y"
	}
	return "n"
}

func encodeSelect(idx int) string {
	if idx == Skip {
		return "s"
	}
	return strconv.Itoa(idx + 1)
}

func encodeDescription(c DescriptionChoice) string {
	switch c.Action {
	case Accept:
		return "y"
	case Crop:
		return FormatRanges(c.Ranges)
	default:
		return "n"
	}
}
