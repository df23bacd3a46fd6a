// Package application defines what budgetmap commands need from the running
// application. Commands accept this interface rather than the concrete App so
// they can be tested against a Mock.
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            repo, err := app.Repository()
//	            if err != nil {
//	                return err
//	            }
//	            // ... use repo
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/civicledger/budgetmap/pkg/logging"
	"github.com/civicledger/budgetmap/pkg/pipeline"
	"github.com/civicledger/budgetmap/pkg/registry"
)

// Application provides the application services commands need.
type Application interface {
	// Repository returns the canonical registry, loading it on first use.
	// A registry that cannot be loaded is fatal for the command.
	Repository() (*registry.Repository, error)

	// PipelineOptions returns the pipeline options derived from configuration:
	// thresholds, layout tolerances and payroll columns.
	PipelineOptions() []pipeline.Option

	// Session opens the session log for one command run.
	Session(console io.Writer) (*logging.Session, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string
}
