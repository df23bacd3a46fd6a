package reconcile

import "github.com/rs/zerolog"

// Stats counts what a run did to the registry.
type Stats struct {
	DepartmentsCreated  int `json:"departments_created" yaml:"departments_created"`
	DepartmentsUpdated  int `json:"departments_updated" yaml:"departments_updated"`
	AliasesAdded        int `json:"aliases_added" yaml:"aliases_added"`
	DescriptionsUpdated int `json:"descriptions_updated" yaml:"descriptions_updated"`

	AllocationsAdded       int `json:"allocations_added" yaml:"allocations_added"`
	AllocationsOverwritten int `json:"allocations_overwritten" yaml:"allocations_overwritten"`
	AllocationsUnchanged   int `json:"allocations_unchanged" yaml:"allocations_unchanged"`
	AllocationsDuplicate   int `json:"allocations_duplicate" yaml:"allocations_duplicate"`

	FundsAdded   int `json:"funds_added" yaml:"funds_added"`
	FundsUpdated int `json:"funds_updated" yaml:"funds_updated"`

	ProgramsAdded   int `json:"programs_added" yaml:"programs_added"`
	ProgramsUpdated int `json:"programs_updated" yaml:"programs_updated"`

	WorkforceYears int `json:"workforce_years" yaml:"workforce_years"`
	OrgLevelsSet   int `json:"org_levels_set" yaml:"org_levels_set"`

	PersistFailures int `json:"persist_failures" yaml:"persist_failures"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.DepartmentsCreated += o.DepartmentsCreated
	s.DepartmentsUpdated += o.DepartmentsUpdated
	s.AliasesAdded += o.AliasesAdded
	s.DescriptionsUpdated += o.DescriptionsUpdated
	s.AllocationsAdded += o.AllocationsAdded
	s.AllocationsOverwritten += o.AllocationsOverwritten
	s.AllocationsUnchanged += o.AllocationsUnchanged
	s.AllocationsDuplicate += o.AllocationsDuplicate
	s.FundsAdded += o.FundsAdded
	s.FundsUpdated += o.FundsUpdated
	s.ProgramsAdded += o.ProgramsAdded
	s.ProgramsUpdated += o.ProgramsUpdated
	s.WorkforceYears += o.WorkforceYears
	s.OrgLevelsSet += o.OrgLevelsSet
	s.PersistFailures += o.PersistFailures
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("departments_created", s.DepartmentsCreated).
		Int("departments_updated", s.DepartmentsUpdated).
		Int("aliases_added", s.AliasesAdded).
		Int("descriptions_updated", s.DescriptionsUpdated).
		Int("allocations_added", s.AllocationsAdded).
		Int("allocations_overwritten", s.AllocationsOverwritten).
		Int("allocations_unchanged", s.AllocationsUnchanged).
		Int("allocations_duplicate", s.AllocationsDuplicate).
		Int("funds_added", s.FundsAdded).
		Int("funds_updated", s.FundsUpdated).
		Int("programs_added", s.ProgramsAdded).
		Int("programs_updated", s.ProgramsUpdated).
		Int("workforce_years", s.WorkforceYears).
		Int("org_levels_set", s.OrgLevelsSet).
		Int("persist_failures", s.PersistFailures)
}
