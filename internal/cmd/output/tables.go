package output

import (
	"strconv"

	"github.com/civicledger/budgetmap/pkg/constants"
	"github.com/civicledger/budgetmap/pkg/pipeline"
	"github.com/civicledger/budgetmap/pkg/registry"
	"github.com/civicledger/budgetmap/pkg/validation"
)

// SummaryData lays out the end-of-run counters.
func SummaryData(s pipeline.Summary) Data {
	return Data{
		Title:           "Run summary",
		Headers:         []string{"Group", "Counter", "Value"},
		Rows:            s.Table(),
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight},
	}
}

// IssuesData lists validation issues, errors first.
func IssuesData(r *validation.Report) Data {
	rows := make([][]string, 0, len(r.Issues))
	for _, sev := range []validation.Severity{validation.SeverityError, validation.SeverityWarning} {
		for _, i := range r.Issues {
			if i.Severity == sev {
				rows = append(rows, []string{string(i.Severity), i.Entity, i.Field, i.Message})
			}
		}
	}
	return Data{
		Title:   r.String(),
		Headers: []string{"Severity", "Entity", "Field", "Message"},
		Rows:    rows,
	}
}

// ProcessedData lists processed files.
func ProcessedData(files []registry.ProcessedFile) Data {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		sha := f.SHA256
		if len(sha) > 12 {
			sha = sha[:12]
		}
		rows = append(rows, []string{f.Path, string(f.Kind), sha, f.ProcessedAt.Format(constants.TimeFormatISO8601)})
	}
	return Data{
		Title:   strconv.Itoa(len(files)) + " processed files",
		Headers: []string{"Path", "Kind", "SHA256", "Processed At"},
		Rows:    rows,
	}
}
