// impstub checks expectation fixtures before tests load them.
//
//	impstub validate testdata/mailer.yaml testdata/store.yaml
//	impstub schema > fixture.schema.json
package main

import (
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/toejough/impstub/fixture"
	"github.com/toejough/impstub/internal/core"
)

// logger is the application-wide structured logger (writes to stderr).
//
//nolint:gochecknoglobals // CLI-wide logger
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
//
//nolint:gochecknoglobals // set by -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "impstub",
		Short: "impstub - check expectation fixtures",
		Long: `impstub validates YAML expectation fixtures against the fixture schema
and builds their expectations, so malformed fixtures fail before any test runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newSchemaCmd())

	return root
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the fixture JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fixture.Schema)

			return err
		},
	}
}

func newValidateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate fixture files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(validateParams{
				paths:  args,
				quiet:  quiet,
				stdout: cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report failures")

	return cmd
}

// validateParams holds the parsed flags for the validate command.
type validateParams struct {
	paths  []string
	quiet  bool
	stdout io.Writer
}

// runValidate is the extracted, testable body of the validate command.
// Every path is checked even after a failure; the error counts the failures.
func runValidate(p validateParams) error {
	failed := 0

	for _, path := range p.paths {
		session := core.NewSession()

		count, err := fixture.LoadFile(session, path)
		if err != nil {
			logger.Error("invalid fixture", "path", path, "err", err)

			failed++

			continue
		}

		logger.Debug("fixture loaded", "path", path, "expectations", count)

		if !p.quiet {
			fmt.Fprintf(p.stdout, "%s: %d expectation(s)\n", path, count)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixture(s) invalid", failed, len(p.paths)) //nolint:err113 // summary
	}

	return nil
}
