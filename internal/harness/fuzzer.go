package harness

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/mutate"
)

// Fuzzer executes one mutation of a base query per seed.
type Fuzzer struct {
	gen      *mutate.Generator
	exec     *Executor
	parallel int
}

// NewFuzzer creates a fuzzer running at most parallel executions at once.
// parallel <= 0 means runtime.GOMAXPROCS(0).
func NewFuzzer(gen *mutate.Generator, exec *Executor, parallel int) *Fuzzer {
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	return &Fuzzer{gen: gen, exec: exec, parallel: parallel}
}

// Run expands base with every seed and executes the mutations.
//
// Results are returned in seed order. The first fatal error (unclassified
// failure, mutation or compile error) cancels the seeds not yet started and
// is returned; results for seeds that never ran have an empty Outcome.
func (f *Fuzzer) Run(ctx context.Context, testID string, base ir.Node, seeds []int64) ([]Result, error) {
	results := make([]Result, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallel)

	for i, seed := range seeds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := f.run(gctx, testID, seed, base)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Replay re-runs a single seed. The mutation is identical to the one Run
// produced for the same seed and base query.
func (f *Fuzzer) Replay(ctx context.Context, testID string, seed int64, base ir.Node) (Result, error) {
	f.exec.logger.Info("replaying seed", "test_id", testID, "seed", seed)
	return f.run(ctx, testID, seed, base)
}

// Mutate returns the query seed produces from base.
func (f *Fuzzer) Mutate(seed int64, base ir.Node) (ir.Node, error) {
	return f.gen.Expand(seed, base)
}

func (f *Fuzzer) run(ctx context.Context, testID string, seed int64, base ir.Node) (Result, error) {
	query, err := f.gen.Expand(seed, base)
	if err != nil {
		res := Result{TestID: testID, Seed: seed, Outcome: OutcomeCompileError, Err: err}
		f.exec.metrics.observe(res)
		return res, err
	}
	return f.exec.Execute(ctx, testID, seed, query)
}
