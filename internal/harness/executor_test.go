package harness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	qtestutil "github.com/roach88/querypipe/internal/testutil"
)

func exceptSource() *scriptedSource {
	return newScriptedSource(map[string]string{
		"TypeMismatch": "Type X cannot be used for parameter Y",
		"DivideByZero": "divide by zero",
		"Locked":       "database is locked",
	})
}

func TestExecute_ExceptSimpleClassification(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Except_simple", "cannot be used for")
	exec := NewExecutor(exceptSource(), WithRegistry(reg))
	ctx := context.Background()

	t.Run("known failure is swallowed", func(t *testing.T) {
		res, err := exec.Execute(ctx, "Except_simple", 1, queryir.Source("TypeMismatch", qtestutil.Customer))
		require.NoError(t, err)
		assert.Equal(t, OutcomeKnownFailure, res.Outcome)
		assert.EqualError(t, res.Err, "Type X cannot be used for parameter Y")
		assert.False(t, res.Failed())
	})

	t.Run("other message is re-raised", func(t *testing.T) {
		res, err := exec.Execute(ctx, "Except_simple", 2, queryir.Source("DivideByZero", qtestutil.Customer))
		require.Error(t, err)
		assert.True(t, IsUnclassifiedError(err))
		assert.Equal(t, OutcomeUnclassified, res.Outcome)
		assert.True(t, res.Failed())

		var ue *UnclassifiedError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, "Except_simple", ue.TestID)
		assert.Equal(t, int64(2), ue.Seed)
		assert.EqualError(t, ue.Err, "divide by zero")
		assert.Equal(t, "unclassified failure in Except_simple (seed=2): divide by zero", err.Error())
	})

	t.Run("same message under another test id is re-raised", func(t *testing.T) {
		_, err := exec.Execute(ctx, "Where_simple", 3, queryir.Source("TypeMismatch", qtestutil.Customer))
		assert.True(t, IsUnclassifiedError(err))
	})

	t.Run("noise is swallowed for every test", func(t *testing.T) {
		res, err := exec.Execute(ctx, "Where_simple", 4, queryir.Source("Locked", qtestutil.Customer))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoise, res.Outcome)
	})
}

func TestExecute_Passes(t *testing.T) {
	exec := NewExecutor(exceptSource())
	q := must(queryir.Take(customers(), 2))(t)

	res, err := exec.Execute(context.Background(), "Take_simple", 7, q)
	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, res.Outcome)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, ir.Format(q), res.Query)
	assert.Equal(t, ir.MustFingerprint(q), res.Fingerprint)
	assert.NoError(t, res.Err)
}

func TestExecute_CompileErrorsPropagateUntouched(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Inject_scalar", "") // would accept every message if consulted
	exec := NewExecutor(exceptSource(), WithRegistry(reg))

	p0 := ir.NewParameter("p0", ir.Int64)
	marker := must(ir.NewInjectParameters(
		[]*ir.Parameter{p0},
		[]ir.Node{ir.MustConstant(ir.Int64, ir.IRInt(5))},
		p0,
	))(t)

	res, err := exec.Execute(context.Background(), "Inject_scalar", 1, marker)
	require.Error(t, err)
	assert.True(t, ir.IsStructuralError(err), "got %T: %v", err, err)
	assert.False(t, IsUnclassifiedError(err))
	assert.Equal(t, OutcomeCompileError, res.Outcome)

	_, direct := Compile(marker)
	assert.Equal(t, direct, err, "executor returns the compiler's error as is")
}

func TestExecute_RuntimeErrorsAreClassified(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Lookup_missing", "BINDING_MISSING")
	exec := NewExecutor(exceptSource(), WithRegistry(reg))

	c := ir.NewParameter("c", qtestutil.Customer)
	age := must(ir.NewMember(c, "Age"))(t)
	pred := must(queryir.Equal(age, ir.NewParameter("__age", ir.Int64)))(t)
	q := must(queryir.Where(customers(), ir.NewLambda(pred, c)))(t)

	res, err := exec.Execute(context.Background(), "Lookup_missing", 1, q)
	require.NoError(t, err)
	assert.Equal(t, OutcomeKnownFailure, res.Outcome)
	assert.True(t, engine.IsBindingError(res.Err))
}

func TestExecute_RowQuota(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Quota", "row quota")
	exec := NewExecutor(exceptSource(), WithRegistry(reg), WithMaxRows(1))

	res, err := exec.Execute(context.Background(), "Quota", 1, customers())
	require.NoError(t, err)
	assert.Equal(t, OutcomeKnownFailure, res.Outcome)
	assert.True(t, engine.IsRowsExceededError(res.Err))
}

func TestExecute_CancellationIsNotClassified(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := NewExecutor(exceptSource())

	_, err := exec.Execute(ctx, "Cancelled", 1, customers())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUnclassifiedError(err))
}

func TestExecute_CountsOutcomes(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Except_simple", "cannot be used for")
	metrics := NewMetrics(prometheus.NewRegistry())
	exec := NewExecutor(exceptSource(), WithRegistry(reg), WithMetrics(metrics))
	ctx := context.Background()

	_, _ = exec.Execute(ctx, "Except_simple", 1, customers())
	_, _ = exec.Execute(ctx, "Except_simple", 2, customers())
	_, _ = exec.Execute(ctx, "Except_simple", 3, queryir.Source("TypeMismatch", qtestutil.Customer))
	_, _ = exec.Execute(ctx, "Except_simple", 4, queryir.Source("DivideByZero", qtestutil.Customer))
	_, _ = exec.Execute(ctx, "Except_simple", 5, queryir.Source("Locked", qtestutil.Customer))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(string(OutcomePassed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(string(OutcomeKnownFailure))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(string(OutcomeUnclassified))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(string(OutcomeNoise))))
	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.RowsRead))
}

func TestExecute_LogsSeedOnUnclassifiedFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	exec := NewExecutor(exceptSource(), WithLogger(logger))

	_, err := exec.Execute(context.Background(), "Except_simple", 1847891685, queryir.Source("DivideByZero", qtestutil.Customer))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="unclassified failure"`)
	assert.Contains(t, out, "test_id=Except_simple")
	assert.Contains(t, out, "seed=1847891685")
}

func TestExecute_RecordsLedger(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Except_simple", "cannot be used for")
	ledger := &recordingLedger{}
	exec := NewExecutor(exceptSource(),
		WithRegistry(reg),
		WithLedger(ledger, qtestutil.NewFixedRunIDGenerator("run-1")),
	)
	ctx := context.Background()

	_, err := exec.Execute(ctx, "Except_simple", 1, customers())
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "Except_simple", 2, queryir.Source("TypeMismatch", qtestutil.Customer))
	require.NoError(t, err)

	require.Len(t, ledger.runs, 2)
	assert.Equal(t, "run-1", exec.RunID())

	first := ledger.runs[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, string(OutcomePassed), first.Outcome)
	assert.Equal(t, ir.Format(customers()), first.Query)
	wantKey, err := ir.RunKey("Except_simple", 1, ir.MustFingerprint(customers()))
	require.NoError(t, err)
	assert.Equal(t, wantKey, first.RunKey)

	second := ledger.runs[1]
	assert.Equal(t, string(OutcomeKnownFailure), second.Outcome)
	assert.Equal(t, "Type X cannot be used for parameter Y", second.Error)
}
