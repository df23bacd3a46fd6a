package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
	"github.com/civicledger/budgetmap/pkg/workforce"
)

// IngestWorkforce processes one delimited payroll table. Entities are matched
// by entity code and name; entities with no matching department are reported
// and skipped.
func (p *Pipeline) IngestWorkforce(ctx context.Context, path string) error {
	ctx, src, err := p.begin(ctx, path, registry.KindWorkforce)
	if err != nil || src == nil {
		return err
	}
	logger := logging.FromContext(ctx)

	res, err := workforce.Read(ctx, bytes.NewReader(src.data), path, p.workforceOpts)
	if err != nil {
		p.summary.FilesFailed++
		return err
	}
	p.summary.RowsRead += res.Rows
	p.summary.RowsMalformed += res.Malformed
	p.summary.SalaryOutOfRange += res.OutOfRange
	p.summary.EntitiesFound += len(res.Entities)
	logger.Info().
		Int("rows", res.Rows).
		Int("malformed", res.Malformed).
		Int("entities", len(res.Entities)).
		Msg("Read payroll table")
	p.validate(ctx, "pre-merge", false)

	for _, ent := range res.Entities {
		if err := p.entity(ctx, ent); err != nil {
			if errors.Is(err, decision.ErrAborted) {
				p.aborted(ctx)
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.summary.EntitiesSkipped++
			logger.Error().Err(err).Str("entity", ent.Name).Msg("Entity failed")
		}
	}

	p.finish(ctx, src)
	return nil
}

func (p *Pipeline) entity(ctx context.Context, ent workforce.Entity) error {
	ctx = logging.WithField(ctx, "entity", ent.Name)
	dept, skipped, err := p.resolve(ctx, resolver.Record{OrgCode: ent.Code, Name: ent.Name})
	if err != nil {
		return err
	}
	if skipped || dept == nil {
		if dept == nil && !skipped {
			logging.FromContext(ctx).Warn().Msg("No department matches payroll entity, skipping")
		}
		p.summary.EntitiesSkipped++
		return nil
	}
	p.summary.EntitiesMatched++

	ch := p.engine.DiffWorkforce(dept, ent.Years)
	prompt := fmt.Sprintf("Approve workforce figures for %s (%s)?", dept.Name, ent.Name)
	ok, err := p.gate(ctx, reconcile.GroupWorkforce, prompt, ch.String())
	if err != nil || !ok {
		return err
	}
	stats, err := p.engine.ApplyWorkforce(ctx, ch)
	if err != nil {
		return err
	}
	p.summary.Stats.Add(stats)
	p.commit(ctx)
	return nil
}
