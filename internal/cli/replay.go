package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/mutate"
	"github.com/roach88/querypipe/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Model  string
	Set    string
	TestID string
	Seed   int64
	Config string
}

// ReplayResult compares a replayed execution with its recorded run.
type ReplayResult struct {
	TestID              string          `json:"test_id"`
	Seed                int64           `json:"seed"`
	RunID               string          `json:"run_id"`
	Query               string          `json:"query"`
	RecordedOutcome     string          `json:"recorded_outcome"`
	Outcome             harness.Outcome `json:"outcome"`
	RecordedFingerprint string          `json:"recorded_fingerprint"`
	Fingerprint         string          `json:"fingerprint"`
	Deterministic       bool            `json:"deterministic"`
	Error               string          `json:"error,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <db>",
		Short: "Re-run a recorded seed and verify it reproduces",
		Long: `Re-run the latest execution recorded for a test id and seed, reading the
fixtures stored in the database, and verify the mutation reproduces the
recorded query fingerprint.

Exits 1 when the replayed query differs from the recorded one or the replay
fails unclassified.

Example:
  qpipe replay ./runs.db --model ./model --set Customers --seed 42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Model, "model", "", "model directory the run was fuzzed from (required)")
	_ = cmd.MarkFlagRequired("model")
	cmd.Flags().StringVar(&opts.Set, "set", "", "data set the base query reads (required)")
	_ = cmd.MarkFlagRequired("set")
	cmd.Flags().StringVar(&opts.TestID, "test-id", "", "test id of the run (default: the set name)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed to replay")
	cmd.Flags().StringVar(&opts.Config, "config", "", "harness config (YAML)")

	return cmd
}

func runReplay(opts *ReplayOptions, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)

	testID := opts.TestID
	if testID == "" {
		testID = opts.Set
	}

	m, err := loadModel(opts.Model)
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

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	recorded, err := st.FindRun(ctx, testID, opts.Seed)
	if errors.Is(err, sql.ErrNoRows) {
		msg := fmt.Sprintf("no run recorded for %s seed %d", testID, opts.Seed)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run ledger", err)
	}

	registry := harness.NewRegistry()
	cfg.Apply(registry)
	exec := harness.NewExecutor(st,
		harness.WithRegistry(registry),
		harness.WithLogger(logger),
	)
	gen := mutate.NewGenerator(
		mutate.WithDenylist(cfg.MutatorDenylist()),
		mutate.WithLogger(logger),
	)
	fuzzer := harness.NewFuzzer(gen, exec, 1)

	res, replayErr := fuzzer.Replay(ctx, testID, opts.Seed, base)
	result := ReplayResult{
		TestID:              testID,
		Seed:                opts.Seed,
		RunID:               recorded.RunID,
		Query:               res.Query,
		RecordedOutcome:     recorded.Outcome,
		Outcome:             res.Outcome,
		RecordedFingerprint: recorded.Fingerprint,
		Fingerprint:         res.Fingerprint,
		Deterministic:       res.Fingerprint == recorded.Fingerprint,
	}
	if res.Err != nil {
		result.Error = res.Err.Error()
	}

	if err := outputReplay(formatter, result); err != nil {
		return err
	}

	switch {
	case !result.Deterministic:
		return NewExitError(ExitFailure, fmt.Sprintf("seed %d did not reproduce the recorded query", opts.Seed))
	case replayErr != nil:
		return WrapExitError(ExitFailure, "replay failed", replayErr)
	}
	return nil
}

func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Replay %s seed=%d (run %s)\n", result.TestID, result.Seed, result.RunID)
	fmt.Fprintf(w, "  query:    %s\n", result.Query)
	fmt.Fprintf(w, "  outcome:  %s (recorded %s)\n", result.Outcome, result.RecordedOutcome)
	if result.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", result.Error)
	}
	if result.Deterministic {
		fmt.Fprintln(w, "Deterministic: query fingerprint matches")
	} else {
		fmt.Fprintf(w, "NON-DETERMINISTIC: fingerprint %s, recorded %s\n", result.Fingerprint, result.RecordedFingerprint)
	}
	return nil
}
