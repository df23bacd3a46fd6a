package reconcile

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/resolver"
)

// Engine diffs source data against a repository and applies approved
// changesets to it.
type Engine struct {
	repo                 *registry.Repository
	descriptionThreshold float64
	fundGroup            string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDescriptionThreshold sets the similarity at or above which an existing
// description is kept without asking.
func WithDescriptionThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.descriptionThreshold = t
		}
	}
}

// WithFundGroup sets the group assigned to newly seen funds.
func WithFundGroup(group string) Option {
	return func(e *Engine) {
		if group != "" {
			e.fundGroup = group
		}
	}
}

// New creates an Engine over repo.
func New(repo *registry.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:                 repo,
		descriptionThreshold: constants.DescriptionSimilarityThreshold,
		fundGroup:            constants.DefaultFundGroup,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Repository returns the repository the engine writes to.
func (e *Engine) Repository() *registry.Repository {
	return e.repo
}

// ProposeDescription returns a proposal to replace existing with proposed, or
// nil when proposed is empty or close enough to existing to keep it.
func (e *Engine) ProposeDescription(existing, proposed string) *DescriptionProposal {
	proposed = strings.TrimSpace(proposed)
	if proposed == "" {
		return nil
	}
	if strings.TrimSpace(existing) != "" && resolver.Similarity(existing, proposed) >= e.descriptionThreshold {
		return nil
	}
	return &DescriptionProposal{Existing: existing, Proposed: proposed}
}

// DiffIdentity compares a source identity with the department it resolved
// to. A nil dept proposes a new department.
func (e *Engine) DiffIdentity(dept *registry.Department, name, orgCode, summary string) *IdentityChange {
	ch := &IdentityChange{Name: strings.TrimSpace(name), OrgCode: strings.TrimSpace(orgCode)}
	var existing string
	if dept != nil {
		ch.DepartmentID = dept.ID
		if dept.OrgCode == "" && ch.OrgCode != "" {
			if other, ok := e.repo.Departments().ByOrgCode(ch.OrgCode); !ok || other.ID == dept.ID {
				ch.SetOrgCode = true
			}
		}
		if ch.Name != "" && !slices.ContainsFunc(dept.Names(), func(n string) bool { return strings.EqualFold(n, ch.Name) }) {
			ch.AddAlias = ch.Name
		}
		existing = dept.Description
	}
	ch.Description = e.ProposeDescription(existing, summary)
	return ch
}

// ApplyIdentity writes an approved identity change. A non-nil Description is
// written as is; callers replace its Proposed text with the operator's crop
// or drop it to keep the existing text.
func (e *Engine) ApplyIdentity(ctx context.Context, ch *IdentityChange) (registry.DepartmentID, Stats, error) {
	logger := logging.FromContext(ctx)
	var stats Stats

	if ch.IsNew() {
		code := ch.OrgCode
		if other, ok := e.repo.Departments().ByOrgCode(code); ok {
			logger.Warn().
				Str("org_code", code).
				Str("owner", other.ID.String()).
				Msg("Org code already assigned, creating department without it")
			code = ""
		}
		dept, err := e.repo.CreateDepartment(ch.Name, code)
		if err != nil {
			return "", stats, err
		}
		if ch.Description != nil {
			dept.Description = ch.Description.Proposed
			stats.DescriptionsUpdated++
		}
		stats.DepartmentsCreated++
		logger.Info().
			Str("event", "department_created").
			Str("department_id", dept.ID.String()).
			Str("org_code", code).
			Msg("Created department")
		return dept.ID, stats, nil
	}

	if !ch.HasChanges() {
		return ch.DepartmentID, stats, nil
	}
	err := e.repo.UpdateDepartment(ch.DepartmentID, func(d *registry.Department) {
		if ch.SetOrgCode {
			d.OrgCode = ch.OrgCode
		}
		if ch.AddAlias != "" && d.AddAlias(ch.AddAlias) {
			stats.AliasesAdded++
		}
		if ch.Description != nil && d.Description != ch.Description.Proposed {
			logger.Info().
				Str("event", "description_updated").
				Str("department_id", d.ID.String()).
				Int("before_len", len(d.Description)).
				Int("after_len", len(ch.Description.Proposed)).
				Msg("Replaced department description")
			d.Description = ch.Description.Proposed
			stats.DescriptionsUpdated++
		}
	})
	if err != nil {
		return ch.DepartmentID, stats, err
	}
	stats.DepartmentsUpdated++
	return ch.DepartmentID, stats, nil
}

// DiffBudget classifies a section's extracted programs and allocations
// against the registry. Allocation keys repeated within the batch keep the
// last occurrence.
func (e *Engine) DiffBudget(ctx context.Context, orgCode, sourceFile string, allocations []registry.Allocation, programs []registry.Program) *BudgetChangeset {
	logger := logging.FromContext(ctx)
	cs := &BudgetChangeset{OrgCode: orgCode, SourceFile: sourceFile}

	index := make(map[registry.AllocationKey]int, len(allocations))
	var batch []registry.Allocation
	for _, a := range allocations {
		a.OrgCode = orgCode
		a.SourceFile = sourceFile
		a.OccurrenceCount = 1
		if i, ok := index[a.Key()]; ok {
			logger.Warn().
				Str("key", a.Key().String()).
				Str("first", batch[i].Amount.String()).
				Str("last", a.Amount.String()).
				Msg("Duplicate allocation in section, keeping the last")
			batch[i] = a
			cs.Duplicates++
			continue
		}
		index[a.Key()] = len(batch)
		batch = append(batch, a)
	}

	for _, a := range batch {
		change := AllocationChange{Type: ChangeAdd, Allocation: a}
		if prev, ok := e.repo.Allocations().Get(a.Key()); ok {
			change.Previous = prev.Amount
			change.Type = ChangeOverwrite
			if prev.Amount.Equal(a.Amount) {
				change.Type = ChangeUnchanged
			}
		}
		cs.Allocations = append(cs.Allocations, change)
	}

	cs.Funds = e.diffFunds(batch)
	cs.Programs = e.diffPrograms(sourceFile, programs)
	return cs
}

func (e *Engine) diffFunds(batch []registry.Allocation) []FundChange {
	var order []string
	names := make(map[string]string)
	for _, a := range batch {
		if a.FundCode == "" {
			continue
		}
		if _, seen := names[a.FundCode]; !seen {
			order = append(order, a.FundCode)
			names[a.FundCode] = ""
		}
		if a.FundName != "" {
			names[a.FundCode] = a.FundName
		}
	}

	var out []FundChange
	for _, code := range order {
		name := names[code]
		prev, ok := e.repo.Funds().Get(code)
		if !ok {
			out = append(out, FundChange{
				Type: ChangeAdd,
				Fund: registry.Fund{FundCode: code, FundName: name, FundGroup: e.fundGroup, Description: name},
			})
			continue
		}
		if name == "" || name == prev.FundName {
			continue
		}
		next := *prev
		next.FundName = name
		if prev.Description == prev.FundName {
			next.Description = name
		}
		before := *prev
		out = append(out, FundChange{Type: ChangeUpdate, Fund: next, Previous: &before})
	}
	return out
}

func (e *Engine) diffPrograms(sourceFile string, programs []registry.Program) []ProgramChange {
	index := make(map[registry.ProgramKey]int, len(programs))
	var out []ProgramChange
	for _, p := range programs {
		p.SourceFile = sourceFile
		change := ProgramChange{Type: ChangeAdd, Program: p}
		if prev, ok := e.repo.Programs().Get(p.Key()); ok {
			if prev.Name == p.Name {
				change.Type = ChangeUnchanged
			} else {
				change.Type = ChangeUpdate
				change.PreviousName = prev.Name
			}
		}
		if i, ok := index[p.Key()]; ok {
			out[i] = change
			continue
		}
		index[p.Key()] = len(out)
		out = append(out, change)
	}
	return out
}

// ApplyBudget writes an approved budget changeset. Overwritten allocations
// are logged with their previous amount, and the department's spending is
// recomputed from the stored allocations when any amount changed.
func (e *Engine) ApplyBudget(ctx context.Context, cs *BudgetChangeset) (Stats, error) {
	logger := logging.FromContext(ctx)
	stats := Stats{AllocationsDuplicate: cs.Duplicates}

	for _, p := range cs.Programs {
		switch p.Type {
		case ChangeAdd:
			e.repo.PutProgram(p.Program)
			stats.ProgramsAdded++
		case ChangeUpdate:
			e.repo.PutProgram(p.Program)
			stats.ProgramsUpdated++
		}
	}

	for _, f := range cs.Funds {
		switch f.Type {
		case ChangeAdd:
			e.repo.PutFund(f.Fund)
			stats.FundsAdded++
			logger.Info().
				Str("event", "fund_created").
				Str("fund_code", f.Fund.FundCode).
				Str("fund_name", f.Fund.FundName).
				Msg("Created fund")
		case ChangeUpdate:
			e.repo.PutFund(f.Fund)
			stats.FundsUpdated++
			logger.Info().
				Str("event", "fund_renamed").
				Str("fund_code", f.Fund.FundCode).
				Str("before", f.Previous.FundName).
				Str("after", f.Fund.FundName).
				Msg("Renamed fund")
		}
	}

	for _, a := range cs.Allocations {
		switch a.Type {
		case ChangeAdd:
			e.repo.PutAllocation(a.Allocation)
			stats.AllocationsAdded++
		case ChangeOverwrite:
			logger.Info().
				Str("event", "allocation_overwritten").
				Str("key", a.Allocation.Key().String()).
				Str("before", a.Previous.String()).
				Str("after", a.Allocation.Amount.String()).
				Msg("Overwrote allocation")
			e.repo.PutAllocation(a.Allocation)
			stats.AllocationsOverwritten++
		case ChangeUnchanged:
			stats.AllocationsUnchanged++
		}
	}

	if stats.AllocationsAdded+stats.AllocationsOverwritten > 0 {
		if err := e.recomputeSpending(cs.OrgCode); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (e *Engine) recomputeSpending(orgCode string) error {
	dept, ok := e.repo.Departments().ByOrgCode(orgCode)
	if !ok {
		return nil
	}
	spending := e.repo.Allocations().SpendingByYear(orgCode)
	return e.repo.UpdateDepartment(dept.ID, func(d *registry.Department) {
		d.Spending = spending
	})
}

// DiffWorkforce pairs aggregated payroll years with the department they
// belong to.
func (e *Engine) DiffWorkforce(dept *registry.Department, years []registry.Workforce) *WorkforceChange {
	ch := &WorkforceChange{DepartmentID: dept.ID, Years: years}
	for _, y := range years {
		if _, ok := dept.HeadCount[y.Year]; ok {
			ch.Replaced = append(ch.Replaced, y.Year)
		}
	}
	return ch
}

// ApplyWorkforce writes approved payroll figures, replacing any stored
// figures for the same years.
func (e *Engine) ApplyWorkforce(ctx context.Context, ch *WorkforceChange) (Stats, error) {
	var stats Stats
	if len(ch.Replaced) > 0 {
		logging.FromContext(ctx).Info().
			Str("event", "workforce_overwritten").
			Str("department_id", ch.DepartmentID.String()).
			Strs("years", ch.Replaced).
			Msg("Replacing workforce figures")
	}
	err := e.repo.UpdateDepartment(ch.DepartmentID, func(d *registry.Department) {
		for _, y := range ch.Years {
			if d.HeadCount == nil {
				d.HeadCount = make(map[string]int)
			}
			if d.Wages == nil {
				d.Wages = make(map[string]decimal.Decimal)
			}
			if d.Compensation == nil {
				d.Compensation = make(map[string]decimal.Decimal)
			}
			if d.SalaryDistribution == nil {
				d.SalaryDistribution = make(registry.Distribution)
			}
			d.HeadCount[y.Year] = y.HeadCount
			d.Wages[y.Year] = y.Wages
			d.Compensation[y.Year] = y.Compensation
			d.SalaryDistribution[y.Year] = slices.Clone(y.Salary)
			stats.WorkforceYears++
		}
	})
	if err != nil {
		return Stats{}, err
	}
	for _, y := range ch.Years {
		logging.FromContext(ctx).Info().
			Str("event", "workforce_recorded").
			Str("department_id", ch.DepartmentID.String()).
			Str("year", y.Year).
			Int("head_count", y.HeadCount).
			Str("wages", y.Wages.String()).
			Str("compensation", y.Compensation.String()).
			Msg("Recorded workforce figures")
	}
	stats.DepartmentsUpdated++
	return stats, nil
}

// ApplyOrgStructure writes approved hierarchy positions. Unchanged entries are
// skipped.
func (e *Engine) ApplyOrgStructure(ctx context.Context, changes []OrgChange) (Stats, error) {
	logger := logging.FromContext(ctx)
	var stats Stats
	var errs []error
	for _, c := range changes {
		if !c.Changed() {
			continue
		}
		err := e.repo.UpdateDepartment(c.DepartmentID, func(d *registry.Department) {
			d.OrgLevel = c.Level
			d.ParentAgency = c.ParentAgency
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug().
			Str("department_id", c.DepartmentID.String()).
			Str("level", c.Level).
			Str("parent_agency", c.ParentAgency).
			Msg("Set org level")
		stats.OrgLevelsSet++
	}
	return stats, errors.Join(errs...)
}

// Commit persists every dirty collection. Failed collections stay dirty for
// the next commit.
func (e *Engine) Commit(ctx context.Context) error {
	dirty := e.repo.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	if err := e.repo.Commit(); err != nil {
		logging.FromContext(ctx).Error().
			Err(err).
			Interface("collections", e.repo.Dirty()).
			Msg("Failed to persist registry")
		return err
	}
	logging.FromContext(ctx).Debug().
		Interface("collections", dirty).
		Msg("Registry persisted")
	return nil
}
