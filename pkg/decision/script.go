package decision

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/save"
)

// Script is a replayable list of operator answers, in the order the prompts
// were asked. Answers use the terminal syntax: y, n, s, a, a selection
// number, or line ranges.
type Script struct {
	Answers []string `json:"answers" yaml:"answers"`
}

// LoadScript reads a YAML or JSON decision script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	format := save.FormatYAML
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		format = save.FormatJSON
	}
	var s Script
	if err := save.Unmarshal(data, format, path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the script atomically as YAML, or JSON for a .json path.
func (s *Script) Save(path string) error {
	format := save.FormatYAML
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		format = save.FormatJSON
	}
	data, err := save.Marshal(s, format)
	if err != nil {
		return errors.WrapResource("persist", "decision script", path, err)
	}
	return save.WriteFileAtomic(path, data)
}

// NewScripted replays the script's answers through terminal parsing. Running
// out of answers aborts.
func NewScripted(s *Script, out io.Writer) Decider {
	var answers string
	if len(s.Answers) > 0 {
		answers = strings.Join(s.Answers, "\n") + "\n"
	}
	return NewTerminal(strings.NewReader(answers), out)
}

// Recorder wraps a Decider and keeps every answer so the session can be
// replayed with NewScripted.
type Recorder struct {
	next Decider

	mu     sync.Mutex
	script Script
}

// NewRecorder creates a Recorder around next.
func NewRecorder(next Decider) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) record(answer string) {
	r.mu.Lock()
	r.script.Answers = append(r.script.Answers, answer)
	r.mu.Unlock()
}

// Script returns a copy of the answers recorded so far.
func (r *Recorder) Script() *Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Script{Answers: append([]string(nil), r.script.Answers...)}
}

// Confirm implements Decider.
func (r *Recorder) Confirm(ctx context.Context, prompt string) (bool, error) {
	ok, err := r.next.Confirm(ctx, prompt)
	if err != nil {
		r.recordAbort(err)
		return ok, err
	}
	r.record(encodeConfirm(ok))
	return ok, nil
}

// Select implements Decider.
func (r *Recorder) Select(ctx context.Context, prompt string, options []string) (int, error) {
	idx, err := r.next.Select(ctx, prompt, options)
	if err != nil {
		r.recordAbort(err)
		return idx, err
	}
	r.record(encodeSelect(idx))
	return idx, nil
}

// Description implements Decider.
func (r *Recorder) Description(ctx context.Context, subject, existing, proposed string) (DescriptionChoice, error) {
	c, err := r.next.Description(ctx, subject, existing, proposed)
	if err != nil {
		r.recordAbort(err)
		return c, err
	}
	r.record(encodeDescription(c))
	return c, nil
}

func (r *Recorder) recordAbort(err error) {
	if errors.Is(err, ErrAborted) {
		r.record("a")
	}
}
