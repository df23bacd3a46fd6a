// Package reconcile diffs extracted budget and workforce data against the
// registry and applies operator-approved changes with overwrite semantics.
//
// Changes are grouped the way the operator approves them: identity and
// description in one gate, programs, allocations and funds in another.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/civicledger/budgetmap/pkg/registry"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeAdd indicates a new record.
	ChangeAdd ChangeType = "add"
	// ChangeOverwrite indicates an existing record whose value is replaced.
	ChangeOverwrite ChangeType = "overwrite"
	// ChangeUpdate indicates an existing record with a changed name.
	ChangeUpdate ChangeType = "update"
	// ChangeUnchanged indicates a record identical to the stored one.
	ChangeUnchanged ChangeType = "unchanged"
)

// FieldGroup is a set of fields approved together.
type FieldGroup string

// Field groups.
const (
	GroupIdentity     FieldGroup = "identity"
	GroupDescription  FieldGroup = "description"
	GroupPrograms     FieldGroup = "programs"
	GroupAllocations  FieldGroup = "allocations"
	GroupFunds        FieldGroup = "funds"
	GroupWorkforce    FieldGroup = "workforce"
	GroupOrgStructure FieldGroup = "org-structure"
)

// Decision records what the operator did with one field group.
type Decision struct {
	Group    FieldGroup `json:"field_group" yaml:"field_group"`
	Proposed string     `json:"proposed_change" yaml:"proposed_change"`
	Approved bool       `json:"approved" yaml:"approved"`
}

// DescriptionProposal is a replacement description offered to the operator.
type DescriptionProposal struct {
	Existing string
	Proposed string
}

// IdentityChange is the identity and description group of one section or
// entity.
type IdentityChange struct {
	// DepartmentID is empty when a new department will be created.
	DepartmentID registry.DepartmentID
	Name         string
	OrgCode      string

	// SetOrgCode assigns OrgCode to a matched department that has none.
	SetOrgCode bool
	// AddAlias records the source name on the matched department.
	AddAlias string

	Description *DescriptionProposal
}

// IsNew reports whether the change creates a department.
func (c *IdentityChange) IsNew() bool {
	return c.DepartmentID == ""
}

// HasChanges reports whether applying the change would modify the registry.
func (c *IdentityChange) HasChanges() bool {
	return c.IsNew() || c.SetOrgCode || c.AddAlias != "" || c.Description != nil
}

// String describes the change for the approval prompt.
func (c *IdentityChange) String() string {
	var lines []string
	if c.IsNew() {
		lines = append(lines, fmt.Sprintf("  new department %q (org code %s)", c.Name, orDash(c.OrgCode)))
	} else {
		lines = append(lines, fmt.Sprintf("  department %s", c.DepartmentID))
	}
	if c.SetOrgCode {
		lines = append(lines, fmt.Sprintf("  set org code %s", c.OrgCode))
	}
	if c.AddAlias != "" {
		lines = append(lines, fmt.Sprintf("  add alias %q", c.AddAlias))
	}
	if c.Description != nil {
		lines = append(lines, fmt.Sprintf("  replace description (%d lines proposed)", strings.Count(c.Description.Proposed, "\n")+1))
	}
	return strings.Join(lines, "\n")
}

// AllocationChange is one allocation of a budget changeset.
type AllocationChange struct {
	Type       ChangeType
	Allocation registry.Allocation
	// Previous is the stored amount for overwrites and unchanged records.
	Previous decimal.Decimal
}

// FundChange is one fund of a budget changeset.
type FundChange struct {
	Type     ChangeType
	Fund     registry.Fund
	Previous *registry.Fund
}

// ProgramChange is one program description of a budget changeset.
type ProgramChange struct {
	Type         ChangeType
	Program      registry.Program
	PreviousName string
}

// BudgetChangeset is the programs, allocations and funds group of one section.
type BudgetChangeset struct {
	OrgCode     string
	SourceFile  string
	Programs    []ProgramChange
	Allocations []AllocationChange
	Funds       []FundChange
	// Duplicates counts allocation keys repeated within the batch. The last
	// occurrence wins.
	Duplicates int
}

// Count returns the number of changes of type t across the changeset.
func (c *BudgetChangeset) Count(group FieldGroup, t ChangeType) int {
	n := 0
	switch group {
	case GroupPrograms:
		for _, p := range c.Programs {
			if p.Type == t {
				n++
			}
		}
	case GroupAllocations:
		for _, a := range c.Allocations {
			if a.Type == t {
				n++
			}
		}
	case GroupFunds:
		for _, f := range c.Funds {
			if f.Type == t {
				n++
			}
		}
	}
	return n
}

// HasChanges returns true if applying the changeset would modify the
// registry.
func (c *BudgetChangeset) HasChanges() bool {
	for _, g := range []FieldGroup{GroupPrograms, GroupAllocations, GroupFunds} {
		if c.Count(g, ChangeAdd)+c.Count(g, ChangeOverwrite)+c.Count(g, ChangeUpdate) > 0 {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the changeset.
func (c *BudgetChangeset) String() string {
	if !c.HasChanges() {
		return "No changes detected"
	}
	parts := []string{
		fmt.Sprintf("Programs: %d added, %d updated", c.Count(GroupPrograms, ChangeAdd), c.Count(GroupPrograms, ChangeUpdate)),
		fmt.Sprintf("Allocations: %d added, %d overwritten, %d unchanged",
			c.Count(GroupAllocations, ChangeAdd), c.Count(GroupAllocations, ChangeOverwrite), c.Count(GroupAllocations, ChangeUnchanged)),
		fmt.Sprintf("Funds: %d added, %d updated", c.Count(GroupFunds, ChangeAdd), c.Count(GroupFunds, ChangeUpdate)),
	}
	return strings.Join(parts, "\n")
}

// WorkforceChange is the workforce group of one entity.
type WorkforceChange struct {
	DepartmentID registry.DepartmentID
	Years        []registry.Workforce
	// Replaced lists the years that already had figures.
	Replaced []string
}

// String describes the change for the approval prompt.
func (c *WorkforceChange) String() string {
	lines := make([]string, 0, len(c.Years))
	for _, y := range c.Years {
		lines = append(lines, fmt.Sprintf("  %s: %d employees, wages %s, compensation %s",
			y.Year, y.HeadCount, y.Wages.StringFixed(2), y.Compensation.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

// OrgChange sets the hierarchy position of one department.
type OrgChange struct {
	DepartmentID   registry.DepartmentID
	Level          string
	ParentAgency   string
	PreviousLevel  string
	PreviousParent string
}

// Changed reports whether the change differs from the stored values.
func (c OrgChange) Changed() bool {
	return c.Level != c.PreviousLevel || c.ParentAgency != c.PreviousParent
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
