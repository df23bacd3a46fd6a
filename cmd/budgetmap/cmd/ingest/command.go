// Package ingest provides the commands that merge source files into the
// registry.
package ingest

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicledger/budgetmap/cmd/application"
	"github.com/civicledger/budgetmap/internal/cmd/output"
	"github.com/civicledger/budgetmap/pkg/decision"
	"github.com/civicledger/budgetmap/pkg/errors"
	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/pipeline"
)

// Flags are the operator-channel flags shared by every ingest subcommand.
type Flags struct {
	Yes    bool
	Script string
	Record string
	Force  bool
}

// NewCommand creates the ingest command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "ingest",
		GroupID: "core",
		Short:   "Merge source files into the registry",
		Long: `Ingest reads budget documents, payroll tables or organization charts and
merges what they contain into the canonical registry.

Every merge is proposed to the operator first. Files already processed with
the same content are skipped unless --force is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.Yes, "yes", "y", false, "approve every gate without asking (ambiguous matches are skipped)")
	cmd.PersistentFlags().StringVar(&flags.Script, "script", "", "replay operator answers from a YAML or JSON decision script")
	cmd.PersistentFlags().StringVar(&flags.Record, "record", "", "save the operator answers of this run to a decision script")
	cmd.PersistentFlags().BoolVar(&flags.Force, "force", false, "reprocess files already recorded as processed")

	cmd.AddCommand(
		newKindCommand(app, flags, "budget", "Ingest positional-text budget documents", (*pipeline.Pipeline).IngestBudget),
		newKindCommand(app, flags, "workforce", "Ingest payroll tables", (*pipeline.Pipeline).IngestWorkforce),
		newKindCommand(app, flags, "orgchart", "Ingest organization structure listings", (*pipeline.Pipeline).IngestOrgChart),
	)
	return cmd
}

type ingestFunc func(p *pipeline.Pipeline, ctx context.Context, path string) error

func newKindCommand(app application.Application, flags *Flags, name, short string, fn ingestFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <file>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, app, flags, args, fn)
		},
	}
}

// Run ingests files one after another. A failed file is logged and the run
// continues; cancellation stops it.
func Run(cmd *cobra.Command, app application.Application, flags *Flags, files []string, fn ingestFunc) error {
	if flags.Yes && flags.Script != "" {
		return errors.NewValidationError("flags", "--yes and --script", "cannot be combined")
	}

	repo, err := app.Repository()
	if err != nil {
		return err
	}
	session, err := app.Session(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	ctx := session.Context(cmd.Context())
	logger := logging.FromContext(ctx)

	decider, recorder, err := newDecider(cmd, flags)
	if err != nil {
		return err
	}

	opts := append(app.PipelineOptions(),
		pipeline.WithDecider(decision.NewLogged(decider)),
		pipeline.WithSession(session),
		pipeline.WithForce(flags.Force),
	)
	p := pipeline.New(repo, opts...)

	var failed int
	for _, path := range files {
		if err := fn(p, ctx, path); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			failed++
			logger.Error().Err(err).Str("file", path).Msg("File failed")
		}
	}

	if recorder != nil {
		if err := recorder.Script().Save(flags.Record); err != nil {
			logger.Error().Err(err).Str("path", flags.Record).Msg("Failed to save decision script")
		}
	}

	summary := p.Summary()
	logger.Info().Str("event", "summary").EmbedObject(summary).Msg("Run complete")

	format := output.DetectFormat(app.OutputFormat())
	var data any = output.SummaryData(summary)
	if format != output.FormatTable {
		data = summary
	}
	if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), data); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// newDecider picks the operator channel: automatic, scripted or the
// terminal, optionally recorded.
func newDecider(cmd *cobra.Command, flags *Flags) (decision.Decider, *decision.Recorder, error) {
	var d decision.Decider
	switch {
	case flags.Yes:
		d = decision.NewAuto()
	case flags.Script != "":
		script, err := decision.LoadScript(flags.Script)
		if err != nil {
			return nil, nil, err
		}
		d = decision.NewScripted(script, cmd.OutOrStdout())
	default:
		d = decision.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	if flags.Record == "" {
		return d, nil, nil
	}
	rec := decision.NewRecorder(d)
	return rec, rec, nil
}
