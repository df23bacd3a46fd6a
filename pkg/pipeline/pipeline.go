// Package pipeline runs ingestion one source file at a time: idempotency
// check, extraction, resolution, approval gates, merge and persistence.
// Every approved gate is committed immediately, so an operator abort only
// discards the unapproved remainder of the current file.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/civicledger/budgetmap/internal/matcher"
	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/extract"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
	"github.com/civicledger/budgetmap/pkg/validation"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

// Pipeline ingests source files into a repository.
type Pipeline struct {
	repo      *registry.Repository
	engine    *reconcile.Engine
	resolver  *resolver.Resolver
	decider   decision.Decider
	segmenter *document.Segmenter
	lookback  int
	session   *logging.Session

	extractOpts   extract.Options
	workforceOpts workforce.Options
	force         bool

	summary   Summary
	decisions []reconcile.Decision
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDecider sets the operator channel. The default approves every gate and
// skips every ambiguous match.
func WithDecider(d decision.Decider) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.decider = d
		}
	}
}

// WithResolver replaces the default resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithEngineOptions configures the merge engine.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(p *Pipeline) {
		p.engine = reconcile.New(p.repo, opts...)
	}
}

// WithExtractOptions sets the layout thresholds.
func WithExtractOptions(o extract.Options) Option {
	return func(p *Pipeline) {
		p.extractOpts = o
	}
}

// WithWorkforceOptions sets the payroll delimiter and columns.
func WithWorkforceOptions(o workforce.Options) Option {
	return func(p *Pipeline) {
		p.workforceOpts = o
	}
}

// WithLookback sets the segmenter's header lookback.
func WithLookback(n int) Option {
	return func(p *Pipeline) {
		p.lookback = n
	}
}

// WithForce reprocesses files already recorded as processed.
func WithForce(force bool) Option {
	return func(p *Pipeline) {
		p.force = force
	}
}

// WithSession tags each file's log entries with a transaction id from s.
func WithSession(s *logging.Session) Option {
	return func(p *Pipeline) {
		p.session = s
	}
}

// New creates a Pipeline over repo.
func New(repo *registry.Repository, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:          repo,
		engine:        reconcile.New(repo),
		resolver:      resolver.New(),
		decider:       decision.NewAuto(),
		extractOpts:   extract.DefaultOptions(),
		workforceOpts: workforce.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.segmenter = document.NewSegmenter(p.decider, document.WithLookback(p.lookback))
	return p
}

// Summary returns the counters accumulated so far.
func (p *Pipeline) Summary() Summary {
	return p.summary
}

// Decisions returns every gate decision taken so far.
func (p *Pipeline) Decisions() []reconcile.Decision {
	return append([]reconcile.Decision(nil), p.decisions...)
}

// source is a file that passed the idempotency check.
type source struct {
	path string
	kind registry.FileKind
	sha  string
	data []byte
}

// begin reads path and decides whether it needs processing. A nil source
// means the file is skipped.
func (p *Pipeline) begin(ctx context.Context, path string, kind registry.FileKind) (context.Context, *source, error) {
	p.summary.Files++

	if p.session != nil {
		ctx = p.session.BeginContext(ctx, path)
	} else {
		ctx = logging.WithFile(logging.WithTransaction(ctx, "txn-"+uuid.NewString()), path)
	}
	logger := logging.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		p.summary.FilesFailed++
		return ctx, nil, errors.WrapIO("read", path, err)
	}
	sum := sha256.Sum256(data)
	src := &source{path: path, kind: kind, sha: hex.EncodeToString(sum[:]), data: data}

	if p.force && p.repo.ClearProcessed(path) {
		logger.Info().Msg("Cleared processed entry, reprocessing")
	}
	if prev, ok := p.repo.Processed().Get(path); ok {
		if prev.SHA256 == src.sha {
			logger.Info().
				Str("event", "file_skipped").
				Str("processed_at", prev.ProcessedAt.String()).
				Msg("File already processed, skipping")
			p.summary.FilesSkipped++
			return ctx, nil, nil
		}
		logger.Info().Msg("File changed since it was processed, reprocessing")
	}
	return ctx, src, nil
}

// finish records src as processed and persists.
func (p *Pipeline) finish(ctx context.Context, src *source) {
	p.repo.MarkProcessed(registry.ProcessedFile{Path: src.path, Kind: src.kind, SHA256: src.sha})
	p.commit(ctx)
	p.validate(ctx, "post-merge", true)
	logging.FromContext(ctx).Info().
		Str("event", "transaction_end").
		Msg("File processed")
}

// aborted handles an operator abort; the rest of the file is discarded.
func (p *Pipeline) aborted(ctx context.Context) {
	p.summary.FilesAborted++
	logging.FromContext(ctx).Warn().
		Str("event", "aborted").
		Msg("Operator aborted, discarding the rest of the file")
}

func (p *Pipeline) commit(ctx context.Context) {
	if err := p.engine.Commit(ctx); err != nil {
		p.summary.PersistFailures++
	}
}

func (p *Pipeline) validate(ctx context.Context, stage string, count bool) {
	report := validation.Validate(p.repo)
	report.Log(ctx, stage)
	if count {
		p.summary.ValidationErrors += report.Errors()
		p.summary.ValidationWarnings += report.Warnings()
	}
}

// gate asks the operator to approve one field group and records the answer.
func (p *Pipeline) gate(ctx context.Context, group reconcile.FieldGroup, prompt, detail string) (bool, error) {
	ok, err := p.decider.Confirm(ctx, prompt+"\n"+detail)
	if err != nil {
		return false, err
	}
	p.decisions = append(p.decisions, reconcile.Decision{Group: group, Proposed: prompt, Approved: ok})
	logging.FromContext(ctx).Info().
		Str("event", "gate").
		Str("field_group", string(group)).
		Bool("approved", ok).
		Msg(prompt)
	return ok, nil
}

// resolve matches rec, asking the operator when the match is ambiguous. A nil
// department means no match; skipped reports that the operator declined every
// candidate.
func (p *Pipeline) resolve(ctx context.Context, rec resolver.Record) (dept *registry.Department, skipped bool, err error) {
	res := p.resolver.Resolve(rec, p.repo.Departments())
	logger := logging.FromContext(ctx)

	switch {
	case res.Best != nil:
		logger.Debug().
			Str("department_id", res.Best.ID.String()).
			Str("match_type", string(res.Best.MatchType)).
			Float64("score", res.Best.Score).
			Msg("Resolved department")
		dept, _ = p.repo.Departments().Get(res.Best.ID)
		return dept, false, nil
	case res.Unmatched():
		return nil, false, nil
	}

	options := make([]string, len(res.Candidates))
	for i, c := range res.Candidates {
		options[i] = c.String()
	}
	prompt := fmt.Sprintf("No confident match for %s %s. Which department is it?", orDash(rec.OrgCode), rec.Name)
	idx, err := p.decider.Select(ctx, prompt, options)
	if err != nil {
		return nil, false, err
	}
	if idx == decision.Skip {
		logger.Info().Str("name", rec.Name).Int("candidates", len(options)).Msg("Ambiguous match skipped")
		return nil, true, nil
	}
	dept, _ = p.repo.Departments().Get(res.Candidates[idx].ID)
	return dept, false, nil
}

// ResetProcessed forgets every processed file whose path matches pattern, a
// glob or regular expression, and persists the change.
func (p *Pipeline) ResetProcessed(ctx context.Context, pattern string) ([]string, error) {
	var paths []string
	for _, f := range p.repo.Processed().List() {
		paths = append(paths, f.Path)
	}
	matched, err := matcher.FilterStrings(matcher.Auto, pattern, paths...)
	if err != nil {
		return nil, errors.WrapValidation("pattern", err)
	}
	for _, path := range matched {
		p.repo.ClearProcessed(path)
	}
	if err := p.engine.Commit(ctx); err != nil {
		return matched, err
	}
	return matched, nil
}

func orDash(s string) string {
	if s == "" {
		return "----"
	}
	return s
}
