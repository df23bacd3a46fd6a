package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicledger/budgetmap/cmd/budgetmap/cmd/ingest"
	"github.com/civicledger/budgetmap/cmd/budgetmap/cmd/processed"
	"github.com/civicledger/budgetmap/cmd/budgetmap/cmd/validate"
	"github.com/civicledger/budgetmap/internal/cmd/output"
)

// rootFlags are the global flags, kept apart from Config until setup merges
// them in.
type rootFlags struct {
	configFile string
	verbose    bool
	quiet      bool
	noColor    bool
	format     string
	logLevel   string
	registry   string
}

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.createRootCommand()
	root.SetArgs(args)
	if a.out != nil {
		root.SetOut(a.out)
	}
	return root.ExecuteContext(ctx)
}

// createRootCommand creates the root command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:     "budgetmap",
		Short:   "Budget document and payroll reconciliation",
		Version: a.version,
		Long: `Budgetmap extracts departments, programs, funds and allocations from
positional-text budget documents, payroll aggregates from compensation
tables and hierarchy levels from organization charts, and reconciles them
into a canonical registry under operator approval.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "management", Title: "Management Commands:"},
	)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is ./.budgetmap.yaml or $HOME/.budgetmap.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&flags.format, "format", "o", "", "output format: table, json, yaml")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVar(&flags.registry, "registry", "", "registry directory (overrides registry_path)")

	root.SetVersionTemplate(fmt.Sprintf("budgetmap {{.Version}} (%s, %s)\n", a.commit, a.date))

	root.AddCommand(
		ingest.NewCommand(a),
		validate.NewCommand(a),
		processed.NewCommand(a),
	)
	return root
}

// setup merges the parsed flags into the configuration before any command
// runs. An explicit --config file replaces the discovered one.
func (a *App) setup(flags *rootFlags) error {
	if flags.configFile != "" {
		config, err := LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	if _, err := output.ParseFormat(flags.format); err != nil {
		return err
	}
	a.config.UpdateFromFlags(flags.verbose, flags.quiet, flags.noColor, flags.format, flags.logLevel, flags.registry)
	a.configureLogging()
	return nil
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
