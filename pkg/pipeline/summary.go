package pipeline

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/pkg/reconcile"
)

// Summary counts what a run found and changed. It is threaded through the
// pipeline instead of living in package state.
type Summary struct {
	Files        int `json:"files" yaml:"files"`
	FilesSkipped int `json:"files_skipped" yaml:"files_skipped"`
	FilesAborted int `json:"files_aborted" yaml:"files_aborted"`
	FilesFailed  int `json:"files_failed" yaml:"files_failed"`

	SectionsFound   int `json:"sections_found" yaml:"sections_found"`
	SectionsMatched int `json:"sections_matched" yaml:"sections_matched"`
	SectionsNew     int `json:"sections_new" yaml:"sections_new"`
	SectionsSkipped int `json:"sections_skipped" yaml:"sections_skipped"`
	SectionsFailed  int `json:"sections_failed" yaml:"sections_failed"`

	EntitiesFound   int `json:"entities_found" yaml:"entities_found"`
	EntitiesMatched int `json:"entities_matched" yaml:"entities_matched"`
	EntitiesSkipped int `json:"entities_skipped" yaml:"entities_skipped"`

	RowsRead         int `json:"rows_read" yaml:"rows_read"`
	RowsMalformed    int `json:"rows_malformed" yaml:"rows_malformed"`
	SalaryOutOfRange int `json:"salary_out_of_range" yaml:"salary_out_of_range"`

	ValidationErrors   int `json:"validation_errors" yaml:"validation_errors"`
	ValidationWarnings int `json:"validation_warnings" yaml:"validation_warnings"`

	reconcile.Stats `yaml:",inline"`
}

// Row is one labelled counter of the end-of-run table.
type Row struct {
	Group string
	Label string
	Value int
}

// Rows returns the counters grouped for display. Zero counters of optional
// groups are left out.
func (s Summary) Rows() []Row {
	rows := []Row{
		{"files", "processed", s.Files - s.FilesSkipped - s.FilesAborted - s.FilesFailed},
		{"files", "skipped", s.FilesSkipped},
		{"files", "aborted", s.FilesAborted},
		{"files", "failed", s.FilesFailed},
	}
	if s.SectionsFound > 0 {
		rows = append(rows,
			Row{"sections", "found", s.SectionsFound},
			Row{"sections", "matched", s.SectionsMatched},
			Row{"sections", "new", s.SectionsNew},
			Row{"sections", "skipped", s.SectionsSkipped},
			Row{"sections", "failed", s.SectionsFailed},
			Row{"allocations", "added", s.AllocationsAdded},
			Row{"allocations", "overwritten", s.AllocationsOverwritten},
			Row{"allocations", "unchanged", s.AllocationsUnchanged},
			Row{"allocations", "duplicate", s.AllocationsDuplicate},
			Row{"funds", "added", s.FundsAdded},
			Row{"funds", "updated", s.FundsUpdated},
			Row{"programs", "added", s.ProgramsAdded},
			Row{"programs", "updated", s.ProgramsUpdated},
		)
	}
	if s.EntitiesFound > 0 {
		rows = append(rows,
			Row{"entities", "found", s.EntitiesFound},
			Row{"entities", "matched", s.EntitiesMatched},
			Row{"entities", "skipped", s.EntitiesSkipped},
		)
	}
	if s.RowsRead > 0 {
		rows = append(rows,
			Row{"payroll", "rows", s.RowsRead},
			Row{"payroll", "malformed", s.RowsMalformed},
			Row{"payroll", "out of range", s.SalaryOutOfRange},
			Row{"workforce", "years merged", s.WorkforceYears},
		)
	}
	if s.OrgLevelsSet > 0 {
		rows = append(rows, Row{"org structure", "levels set", s.OrgLevelsSet})
	}
	rows = append(rows,
		Row{"departments", "created", s.DepartmentsCreated},
		Row{"departments", "updated", s.DepartmentsUpdated},
		Row{"departments", "aliases added", s.AliasesAdded},
		Row{"departments", "descriptions", s.DescriptionsUpdated},
		Row{"validation", "errors", s.ValidationErrors},
		Row{"validation", "warnings", s.ValidationWarnings},
		Row{"persist", "failures", s.PersistFailures},
	)
	return rows
}

// Table returns the rows as string cells for a table writer.
func (s Summary) Table() [][]string {
	rows := s.Rows()
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Group, r.Label, strconv.Itoa(r.Value)}
	}
	return out
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("files", s.Files).
		Int("files_skipped", s.FilesSkipped).
		Int("files_aborted", s.FilesAborted).
		Int("files_failed", s.FilesFailed).
		Int("sections_found", s.SectionsFound).
		Int("sections_matched", s.SectionsMatched).
		Int("sections_new", s.SectionsNew).
		Int("sections_skipped", s.SectionsSkipped).
		Int("sections_failed", s.SectionsFailed).
		Int("entities_found", s.EntitiesFound).
		Int("entities_matched", s.EntitiesMatched).
		Int("entities_skipped", s.EntitiesSkipped).
		Int("rows_read", s.RowsRead).
		Int("rows_malformed", s.RowsMalformed).
		Int("salary_out_of_range", s.SalaryOutOfRange).
		Int("validation_errors", s.ValidationErrors).
		Int("validation_warnings", s.ValidationWarnings).
		EmbedObject(s.Stats)
}
