package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/mutate"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Set    string
	Seed   int64
	Config string
}

// PlanResult shows every stage a seed's query goes through.
type PlanResult struct {
	Set     string `json:"set"`
	Seed    int64  `json:"seed"`
	Mutator string `json:"mutator,omitempty"`
	Base    string `json:"base"`
	Query   string `json:"query"`
	Plan    string `json:"plan"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <model-dir>",
		Short: "Show the mutated and compiled query for a seed",
		Long: `Show which mutation a seed applies to a data set's base query, and the
plan the rewrite and binder produce for it. Nothing is executed.

Example:
  qpipe plan ./model --set Customers --seed 42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "data set the base query reads (required)")
	_ = cmd.MarkFlagRequired("set")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "mutation seed")
	cmd.Flags().StringVar(&opts.Config, "config", "", "harness config (YAML) with mutator denylist entries")

	return cmd
}

func runPlan(opts *PlanOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	m, err := loadModel(modelDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	base, err := m.Source(opts.Set)
	if err != nil {
		return reportLoadError(formatter, &LoadError{Code: ErrCodeUnknownSet, Message: err.Error()})
	}

	gen := mutate.NewGenerator(
		mutate.WithDenylist(cfg.MutatorDenylist()),
		mutate.WithLogger(newLogger(formatter.GetErrWriter(), opts.Verbose)),
	)
	result := PlanResult{Set: opts.Set, Seed: opts.Seed, Base: ir.Format(base)}
	if name, ok := gen.Explain(opts.Seed, base); ok {
		result.Mutator = name
	}

	query, err := gen.Expand(opts.Seed, base)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "mutation failed", err)
	}
	result.Query = ir.Format(query)

	plan, err := harness.Compile(query)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "compile failed", err)
	}
	result.Plan = ir.Format(plan)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	mutator := result.Mutator
	if mutator == "" {
		mutator = "(none)"
	}
	fmt.Fprintf(w, "seed:    %d\n", result.Seed)
	fmt.Fprintf(w, "mutator: %s\n", mutator)
	fmt.Fprintf(w, "base:    %s\n", result.Base)
	fmt.Fprintf(w, "query:   %s\n", result.Query)
	fmt.Fprintf(w, "plan:    %s\n", result.Plan)
	return nil
}
