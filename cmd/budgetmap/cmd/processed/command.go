// Package processed provides commands for the processed-file set.
package processed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/internal/cmd/output"
	"github.com/civicledger/budgetmap/pkg/pipeline"
)

// NewCommand creates the processed command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "processed",
		GroupID: "management",
		Short:   "List or reset the files recorded as processed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newListCommand(app), newResetCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := app.Repository()
			if err != nil {
				return err
			}
			files := repo.Processed().List()

			format := output.DetectFormat(app.OutputFormat())
			var data any = files
			if format == output.FormatTable {
				data = output.ProcessedData(files)
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
		},
	}
}

func newResetCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <pattern>",
		Short: "Forget processed files matching a glob or regular expression",
		Example: `  budgetmap processed reset '*budget-2024*'
  budgetmap processed reset 'payroll-20(22|23)\.csv$'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Repository()
			if err != nil {
				return err
			}
			p := pipeline.New(repo, app.PipelineOptions()...)
			cleared, err := p.ResetProcessed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, path := range cleared {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reset %d processed files\n", len(cleared))
			return err
		},
	}
}
