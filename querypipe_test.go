package querypipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/harness/harnesstest"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/testutil"
)

func init() {
	Register("Suppliers_known", "unknown data set")

	src := engine.NewMemorySource()
	src.AddObjects("Customers", testutil.CustomerRows()...)
	SetSource(src)
}

func customers() Node {
	return queryir.Source("Customers", testutil.Customer)
}

func TestRewriteLeavesPlainQueryUnchanged(t *testing.T) {
	q, err := queryir.Take(customers(), 2)
	require.NoError(t, err)

	out, err := Rewrite(q)
	require.NoError(t, err)
	assert.Equal(t, ir.Format(q), ir.Format(out))
}

func TestCompileLiftsDeferredParameter(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	age, err := ir.NewMember(c, "Age")
	require.NoError(t, err)
	pred, err := queryir.Equal(age, ir.NewParameter("__age", ir.Int64))
	require.NoError(t, err)
	q, err := queryir.Where(customers(), ir.NewLambda(pred, c))
	require.NoError(t, err)

	plan, err := Compile(q)
	require.NoError(t, err)
	assert.NotContains(t, ir.Format(plan), "Equal(c.Age, __age)")
	assert.Contains(t, ir.Format(plan), "GetParameterValue")
}

func TestExpandIsDeterministic(t *testing.T) {
	for seed := range int64(16) {
		a, err := Expand(seed, customers())
		require.NoError(t, err)
		b, err := Expand(seed, customers())
		require.NoError(t, err)
		assert.Equal(t, ir.MustFingerprint(a), ir.MustFingerprint(b), "seed %d", seed)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("Take_simple", func(t *testing.T) {
		q, err := queryir.Take(customers(), 3)
		require.NoError(t, err)

		res, err := Execute(ctx, harnesstest.TestID(t), q)
		require.NoError(t, err)
		assert.Equal(t, harness.OutcomePassed, res.Outcome)
		assert.Equal(t, 3, res.Rows)
	})

	t.Run("Suppliers_known", func(t *testing.T) {
		res, err := Execute(ctx, harnesstest.TestID(t), queryir.Source("Suppliers", testutil.Customer))
		require.NoError(t, err)
		assert.Equal(t, harness.OutcomeKnownFailure, res.Outcome)
	})

	t.Run("unregistered failure is raised with its seed", func(t *testing.T) {
		_, err := ExecuteSeed(ctx, "Suppliers_unknown", 42, queryir.Source("Suppliers", testutil.Customer))
		require.Error(t, err)
		assert.True(t, harness.IsUnclassifiedError(err))
		assert.Contains(t, err.Error(), "(seed=42)")
	})
}
