package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/document"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/extract"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/reconcile"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
)

// IngestOrgChart reads an indented organization listing and sets the level
// and parent agency of every department it names, behind one gate for the
// whole chart. Unknown codes are reported, never created.
func (p *Pipeline) IngestOrgChart(ctx context.Context, path string) error {
	ctx, src, err := p.begin(ctx, path, registry.KindOrgChart)
	if err != nil || src == nil {
		return err
	}
	logger := logging.FromContext(ctx)

	doc, err := document.Parse(bytes.NewReader(src.data), path)
	if err != nil {
		p.summary.FilesFailed++
		return err
	}
	entries := extract.ExtractOrgStructure(doc, p.extractOpts)
	p.summary.EntitiesFound += len(entries)
	logger.Info().Int("entries", len(entries)).Msg("Read organization structure")

	changes, err := p.orgChanges(ctx, entries)
	if err != nil {
		if errors.Is(err, decision.ErrAborted) {
			p.aborted(ctx)
			return nil
		}
		return err
	}

	var pending []reconcile.OrgChange
	var lines []string
	for _, c := range changes {
		if c.Changed() {
			pending = append(pending, c)
			lines = append(lines, fmt.Sprintf("  %s: level %s, parent %s", c.DepartmentID, c.Level, orDash(c.ParentAgency)))
		}
	}
	if len(pending) > 0 {
		prompt := fmt.Sprintf("Apply organization levels to %d departments?", len(pending))
		ok, err := p.gate(ctx, reconcile.GroupOrgStructure, prompt, strings.Join(lines, "\n"))
		if err != nil {
			if errors.Is(err, decision.ErrAborted) {
				p.aborted(ctx)
				return nil
			}
			return err
		}
		if ok {
			stats, err := p.engine.ApplyOrgStructure(ctx, pending)
			p.summary.Stats.Add(stats)
			if err != nil {
				logger.Error().Err(err).Msg("Some org levels could not be applied")
			}
			p.commit(ctx)
		}
	}

	p.finish(ctx, src)
	return nil
}

// orgChanges resolves each entry and pairs it with the agency it sits under.
func (p *Pipeline) orgChanges(ctx context.Context, entries []extract.OrgEntry) ([]reconcile.OrgChange, error) {
	logger := logging.FromContext(ctx)
	var out []reconcile.OrgChange
	for _, e := range entries {
		dept, skipped, err := p.resolve(ctx, resolver.Record{OrgCode: e.Code, Name: e.Name})
		if err != nil {
			return nil, err
		}
		if dept == nil {
			if !skipped {
				logger.Warn().
					Str("org_code", e.Code).
					Str("name", e.Name).
					Str("parent", e.Parent).
					Msg("Org chart entry has no department")
			}
			p.summary.EntitiesSkipped++
			continue
		}
		p.summary.EntitiesMatched++
		out = append(out, reconcile.OrgChange{
			DepartmentID:   dept.ID,
			Level:          e.Level,
			ParentAgency:   e.Agency,
			PreviousLevel:  dept.OrgLevel,
			PreviousParent: dept.ParentAgency,
		})
	}
	return out, nil
}
