package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/querypipe/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qpipe CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "qpipe",
		Short:   "qpipe - query pipeline fuzzer",
		Version: ir.EngineVersion,
		Long: `Rewrite, compile and execute LINQ-style query trees against a CUE entity model.

qpipe mutates a base query per seed, runs every mutation through the
parameter-injection rewrite and binder, evaluates the resulting plan and
classifies failures against a registry of accepted errors.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewFuzzCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// reportLoadError prints err and returns it as a command error (exit 2).
func reportLoadError(formatter *OutputFormatter, err error) error {
	code, details := ErrCodeGeneric, any(nil)
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
		if line := le.Line(); line > 0 {
			details = map[string]int{"line": line}
		}
	}
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(ExitCommandError, code, err)
}
