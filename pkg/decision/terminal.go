package decision

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Terminal reads answers line by line. Invalid answers are re-asked; end of
// input aborts.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal reading from in and prompting on out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if out == nil {
		out = io.Discard
	}
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, _ = fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		_, _ = fmt.Fprintln(t.out)
		return "", fmt.Errorf("%w: no more input", ErrAborted)
	}
	return strings.TrimSpace(line), nil
}

func isAbort(answer string) bool {
	switch strings.ToLower(answer) {
	case "a", "abort":
		return true
	}
	return false
}

// Confirm implements Decider.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	for {
		answer, err := t.ask(ctx, prompt+" (y/n, a to abort): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if isAbort(answer) {
			return false, ErrAborted
		}
		_, _ = fmt.Fprintln(t.out, "Please answer y or n.")
	}
}

// Select implements Decider.
func (t *Terminal) Select(ctx context.Context, prompt string, options []string) (int, error) {
	_, _ = fmt.Fprintln(t.out, prompt)
	for i, opt := range options {
		_, _ = fmt.Fprintf(t.out, "  %d. %s\n", i+1, opt)
	}
	for {
		answer, err := t.ask(ctx, fmt.Sprintf("Select 1-%d, s to skip, a to abort: ", len(options)))
		if err != nil {
			return Skip, err
		}
		if isAbort(answer) {
			return Skip, ErrAborted
		}
		switch strings.ToLower(answer) {
		case "s", "skip":
			return Skip, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		_, _ = fmt.Fprintf(t.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

// Description implements Decider.
func (t *Terminal) Description(ctx context.Context, subject, existing, proposed string) (DescriptionChoice, error) {
	_, _ = fmt.Fprintf(t.out, "Description for %s\n", subject)
	if existing != "" {
		_, _ = fmt.Fprintf(t.out, "Existing:\n%s\n", existing)
	}
	_, _ = fmt.Fprintf(t.out, "Proposed:\n%s\n", NumberLines(proposed))
	for {
		answer, err := t.ask(ctx, "Accept (y), keep existing (n), or line ranges to keep (e.g. 1-5,8-12); a to abort: ")
		if err != nil {
			return DescriptionChoice{Action: Keep}, err
		}
		if isAbort(answer) {
			return DescriptionChoice{Action: Keep}, ErrAborted
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return DescriptionChoice{Action: Accept}, nil
		case "n", "no", "k", "keep":
			return DescriptionChoice{Action: Keep}, nil
		}
		if ranges, err := ParseRanges(answer); err == nil {
			return DescriptionChoice{Action: Crop, Ranges: ranges}, nil
		}
		_, _ = fmt.Fprintln(t.out, "Please answer y, n or a list of line ranges.")
	}
}
