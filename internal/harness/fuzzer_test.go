package harness

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/mutate"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/testutil"
)

func seedRange(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(i + 1)
	}
	return seeds
}

func TestFuzzer_RunAllSeedsPass(t *testing.T) {
	f := NewFuzzer(mutate.NewGenerator(), NewExecutor(exceptSource()), 4)
	base := queryir.Source("People", testutil.Person)

	results, err := f.Run(context.Background(), "People_fuzz", base, seedRange(32))
	require.NoError(t, err)
	require.Len(t, results, 32)
	for i, res := range results {
		assert.Equal(t, int64(i+1), res.Seed, "results are in seed order")
		assert.Equal(t, OutcomePassed, res.Outcome, "seed %d: %s: %v", res.Seed, res.Query, res.Err)
		assert.Equal(t, 2, res.Rows, "seed %d: every catalogue mutation keeps the row count", res.Seed)
	}
}

func TestFuzzer_RunIsDeterministic(t *testing.T) {
	base := queryir.Source("Customers", testutil.Customer)
	seeds := seedRange(16)

	run := func(parallel int) []Result {
		f := NewFuzzer(mutate.NewGenerator(), NewExecutor(exceptSource()), parallel)
		results, err := f.Run(context.Background(), "Customers_fuzz", base, seeds)
		require.NoError(t, err)
		return results
	}

	sequential, parallel := run(1), run(8)
	if diff := cmp.Diff(sequential, parallel, cmpopts.IgnoreFields(Result{}, "Err")); diff != "" {
		t.Errorf("parallel run differs from sequential (-seq +par):\n%s", diff)
	}
}

func TestFuzzer_UnclassifiedFailureStopsRun(t *testing.T) {
	f := NewFuzzer(mutate.NewGenerator(), NewExecutor(exceptSource()), 1)
	base := queryir.Source("DivideByZero", testutil.Person)

	results, err := f.Run(context.Background(), "Except_simple", base, seedRange(4))
	require.Error(t, err)
	assert.True(t, IsUnclassifiedError(err))
	assert.Equal(t, OutcomeUnclassified, results[0].Outcome)
}

func TestFuzzer_KnownFailuresDoNotStopRun(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Except_simple", "cannot be used for")
	f := NewFuzzer(mutate.NewGenerator(), NewExecutor(exceptSource(), WithRegistry(reg)), 2)
	base := queryir.Source("TypeMismatch", testutil.Person)

	results, err := f.Run(context.Background(), "Except_simple", base, seedRange(8))
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, OutcomeKnownFailure, res.Outcome)
	}
}

func TestFuzzer_ReplayReproducesRun(t *testing.T) {
	f := NewFuzzer(mutate.NewGenerator(), NewExecutor(exceptSource()), 4)
	base := queryir.Source("People", testutil.Person)
	seed := int64(1847891685)

	results, err := f.Run(context.Background(), "People_fuzz", base, []int64{seed})
	require.NoError(t, err)

	replayed, err := f.Replay(context.Background(), "People_fuzz", seed, base)
	require.NoError(t, err)
	assert.Equal(t, results[0].Fingerprint, replayed.Fingerprint)
	assert.Equal(t, results[0].Query, replayed.Query)

	mutated, err := f.Mutate(seed, base)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(mutated), replayed.Fingerprint)
}

func TestFuzzer_FixedPointOnEmptyCatalogue(t *testing.T) {
	f := NewFuzzer(mutate.NewGenerator(mutate.WithMutators()), NewExecutor(exceptSource()), 2)
	base := queryir.Source("People", testutil.Person)

	results, err := f.Run(context.Background(), "People_fuzz", base, seedRange(4))
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, ir.MustFingerprint(base), res.Fingerprint)
	}
}
