// Package validate provides the validate command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/internal/cmd/output"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/validation"
)

// NewCommand creates the validate command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "management",
		Short:   "Check the registry's structural and arithmetic invariants",
		Long: `Validate checks every department, allocation and fund in the registry:
required identifiers, code formats, registered funds, and that every
distribution sums to the year's head count.

Errors make the command exit non-zero. Warnings are reported only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := app.Repository()
			if err != nil {
				return err
			}
			report := validation.Validate(repo)
			report.Log(logging.WithLogger(cmd.Context(), app.Logger()), "registry")

			format := output.DetectFormat(app.OutputFormat())
			var data any = report
			if format == output.FormatTable {
				if len(report.Issues) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), report.String())
					return err
				}
				data = output.IssuesData(report)
			}
			if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), data); err != nil {
				return err
			}
			if !report.IsValid() {
				return fmt.Errorf("registry has %d validation errors", report.Errors())
			}
			return nil
		},
	}
}
