package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/extract"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
)

// IngestBudget processes one positional-text budget document. An operator
// abort discards the rest of the file and is not an error; the file is then
// not recorded as processed.
func (p *Pipeline) IngestBudget(ctx context.Context, path string) error {
	ctx, src, err := p.begin(ctx, path, registry.KindBudget)
	if err != nil || src == nil {
		return err
	}
	logger := logging.FromContext(ctx)

	doc, err := document.Parse(bytes.NewReader(src.data), path)
	if err != nil {
		p.summary.FilesFailed++
		return err
	}
	logger.Info().Int("tokens", doc.Len()).Int("pages", len(doc.Pages)).Msg("Parsed document")
	p.validate(ctx, "pre-merge", false)

	sections, err := p.segmenter.Segment(ctx, doc)
	if err != nil {
		if errors.Is(err, decision.ErrAborted) {
			p.aborted(ctx)
			return nil
		}
		p.summary.FilesFailed++
		return err
	}
	p.summary.SectionsFound += len(sections)

	for _, sec := range sections {
		if err := p.section(ctx, doc, sec); err != nil {
			if errors.Is(err, decision.ErrAborted) {
				p.aborted(ctx)
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.summary.SectionsFailed++
			logger.Error().Err(err).Str("section", sec.String()).Msg("Section failed")
		}
	}

	p.finish(ctx, src)
	return nil
}

// section runs the identity gate and the budget gate for one department.
func (p *Pipeline) section(ctx context.Context, doc *document.Document, sec document.Section) error {
	ctx = logging.WithDepartment(ctx, sec.OrgCode)
	logger := logging.FromContext(ctx)

	dept, skipped, err := p.resolve(ctx, resolver.Record{OrgCode: sec.OrgCode, Name: sec.Name})
	if err != nil {
		return err
	}
	if skipped {
		p.summary.SectionsSkipped++
		return nil
	}
	if dept != nil {
		p.summary.SectionsMatched++
	}

	// Gate (a): identity and description.
	ch := p.engine.DiffIdentity(dept, sec.Name, sec.OrgCode, extract.DepartmentSummary(doc, sec))
	if ch.Description != nil {
		choice, err := p.decider.Description(ctx, fmt.Sprintf("%s %s", sec.OrgCode, sec.Name), ch.Description.Existing, ch.Description.Proposed)
		if err != nil {
			return err
		}
		if choice.Action == decision.Keep {
			ch.Description = nil
		} else {
			ch.Description.Proposed = choice.Apply(ch.Description.Existing, ch.Description.Proposed)
		}
	}
	if ch.HasChanges() {
		group := reconcile.GroupIdentity
		if !ch.IsNew() && !ch.SetOrgCode && ch.AddAlias == "" {
			group = reconcile.GroupDescription
		}
		ok, err := p.gate(ctx, group, fmt.Sprintf("Approve identity changes for %s %s?", sec.OrgCode, sec.Name), ch.String())
		if err != nil {
			return err
		}
		if ok {
			_, stats, err := p.engine.ApplyIdentity(ctx, ch)
			if err != nil {
				return err
			}
			p.summary.Stats.Add(stats)
			if ch.IsNew() {
				p.summary.SectionsNew++
			}
			p.commit(ctx)
		}
	}

	// Gate (b): programs, allocations and funds.
	table, err := extract.ExtractTable(ctx, doc, sec, p.extractOpts)
	if err != nil {
		if errors.IsStructureError(err) {
			logger.Warn().Err(err).Msg("Skipping budget table")
			p.summary.SectionsFailed++
			return nil
		}
		return err
	}
	programs := extract.ExtractDescriptions(ctx, doc, sec, p.extractOpts)
	cs := p.engine.DiffBudget(ctx, sec.OrgCode, doc.Name, table.Allocations, programs)
	if !cs.HasChanges() {
		stats, err := p.engine.ApplyBudget(ctx, cs)
		p.summary.Stats.Add(stats)
		return err
	}

	ok, err := p.gate(ctx, reconcile.GroupAllocations, fmt.Sprintf("Approve budget changes for %s %s?", sec.OrgCode, sec.Name), cs.String())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	stats, err := p.engine.ApplyBudget(ctx, cs)
	p.summary.Stats.Add(stats)
	if err != nil {
		return err
	}
	p.commit(ctx)
	return nil
}
