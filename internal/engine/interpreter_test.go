package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/binder"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/rewrite"
	"github.com/roach88/querypipe/internal/testutil"
)

func must[T any](v T, err error) func(t *testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

func member(t *testing.T, n ir.Node, field string) *ir.Member {
	t.Helper()
	return must(ir.NewMember(n, field))(t)
}

func fixtureSource() *MemorySource {
	src := NewMemorySource()
	src.AddObjects("Customers", testutil.CustomerRows()...)
	src.AddObjects("Orders", testutil.OrderRows()...)
	src.AddObjects("People", testutil.PersonRows()...)
	return src
}

func customers() *ir.Constant {
	return queryir.Source("Customers", testutil.Customer)
}

func run(t *testing.T, n ir.Node, opts ...Option) ([]ir.IRValue, error) {
	t.Helper()
	in := NewInterpreter(fixtureSource(), opts...)
	res, err := in.Evaluate(context.Background(), NewQueryContext(), n)
	if err != nil {
		return nil, err
	}
	return Drain(context.Background(), res)
}

func field(rows []ir.IRValue, name string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = ir.GoValue(r.(ir.IRObject)[name])
	}
	return out
}

func TestEvaluateWhere(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	pred := must(queryir.Equal(member(t, c, "City"), ir.MustConstant(ir.String, ir.IRString("Berlin"))))(t)
	q := must(queryir.Where(customers(), ir.NewLambda(pred, c)))(t)

	rows, err := run(t, q)
	require.NoError(t, err)
	assert.Equal(t, []any{"ALFKI"}, field(rows, "CustomerID"))
}

func TestEvaluateOrderingChain(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	byAge := must(queryir.OrderBy(customers(), ir.NewLambda(member(t, c, "Age"), c)))(t)
	thenName := must(queryir.ThenByDescending(byAge, ir.NewLambda(member(t, c, "Name"), c)))(t)
	names := must(queryir.Select(thenName, ir.NewLambda(member(t, c, "Name"), c)))(t)

	rows, err := run(t, names)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{
		ir.IRString("Blauer See"),
		ir.IRString("Ana Trujillo"),
		ir.IRString("Berglunds"),
		ir.IRString("Alfreds"),
	}, rows)
}

func TestEvaluateOrderByDescending(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	q := must(queryir.OrderByDescending(customers(), ir.NewLambda(member(t, c, "Age"), c)))(t)

	rows, err := run(t, q)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(41), int64(35), int64(29), int64(29)}, field(rows, "Age"))
	assert.Equal(t, []any{"ANATR", "BLAUS"}, field(rows[2:], "CustomerID"), "sort is stable")
}

func TestEvaluateTake(t *testing.T) {
	tests := []struct {
		count int64
		want  int
	}{
		{0, 0},
		{2, 2},
		{10, 4},
		{-1, 0},
	}
	for _, tt := range tests {
		rows, err := run(t, must(queryir.Take(customers(), tt.count))(t))
		require.NoError(t, err)
		assert.Len(t, rows, tt.want, "Take(%d)", tt.count)
	}
}

func TestEvaluateJoin(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	o := ir.NewParameter("o", testutil.Order)
	q := must(queryir.Join(
		customers(),
		queryir.Source("Orders", testutil.Order),
		ir.NewLambda(member(t, c, "CustomerID"), c),
		ir.NewLambda(member(t, o, "CustomerID"), o),
		ir.NewLambda(member(t, o, "OrderID"), c, o),
	))(t)

	rows, err := run(t, q)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRInt(10643), ir.IRInt(10692), ir.IRInt(10308)}, rows)
}

func TestEvaluateInlineRowsAndMembers(t *testing.T) {
	tags := ir.MustConstant(ir.Array(ir.String), ir.IRArray{ir.IRString("a"), ir.IRString("bc")})
	length := must(queryir.Select(must(queryir.ToQueryable(tags))(t),
		ir.NewLambda(member(t, ir.NewParameter("s", ir.String), "Length"), ir.NewParameter("s", ir.String))))(t)

	rows, err := run(t, length)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRInt(1), ir.IRInt(2)}, rows)

	count, err := run(t, member(t, tags, "Length"))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRInt(2)}, count)
}

func TestEvaluateOptionalMembers(t *testing.T) {
	null := ir.MustConstant(ir.Optional(ir.Int64), nil)
	five := ir.MustConstant(ir.Optional(ir.Int64), ir.IRInt(5))

	rows, err := run(t, member(t, null, "HasValue"))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRBool(false)}, rows)

	rows, err = run(t, member(t, five, "Value"))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRInt(5)}, rows)

	_, err = run(t, member(t, null, "Value"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no value")
}

func TestEvaluateUnboundParameter(t *testing.T) {
	_, err := run(t, ir.NewParameter("__age", ir.Int64))

	require.Error(t, err)
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeUnboundParameter, re.Code)
	assert.Equal(t, "__age", re.Details["name"])
}

func TestEvaluateUnsupportedOperator(t *testing.T) {
	except := &ir.OperatorDef{
		Name:  "Except",
		Arity: 2,
		Resolve: func(_ []*ir.Type, operands []ir.Node) (*ir.Type, error) {
			return operands[0].Type(), nil
		},
	}
	q := must(ir.NewOperator(except, nil, customers(), customers()))(t)

	_, err := run(t, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNSUPPORTED_OPERATOR")
	assert.Contains(t, err.Error(), "operator=Except")
}

func TestEvaluateUnknownDataSet(t *testing.T) {
	_, err := run(t, queryir.Source("Suppliers", testutil.Customer))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown data set "Suppliers"`)
}

func TestEvaluateRowQuota(t *testing.T) {
	_, err := run(t, customers(), WithMaxRows(2))
	require.Error(t, err)
	assert.True(t, IsRowsExceededError(err))

	rows, err := run(t, must(queryir.Take(customers(), 2))(t), WithMaxRows(2))
	require.NoError(t, err)
	assert.Len(t, rows, 2, "lazy evaluation stops reading at the limit")
}

func TestDrainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := NewInterpreter(fixtureSource())
	res, err := in.Evaluate(ctx, NewQueryContext(), customers())
	require.NoError(t, err)

	cancel()
	_, err = Drain(ctx, res)
	assert.ErrorIs(t, err, context.Canceled)
}

// injectionMarker declares p0 = 5 and p1 = "x" over
// People.Where(p => p.Age == p0).Where(p => p.Name == p1).
func injectionMarker(t *testing.T) *ir.InjectParameters {
	t.Helper()
	people := ir.MustConstant(ir.Queryable(testutil.Person), ir.IRArray{
		ir.IRObject{"Name": ir.IRString("x"), "Age": ir.IRInt(5)},
		ir.IRObject{"Name": ir.IRString("y"), "Age": ir.IRInt(5)},
		ir.IRObject{"Name": ir.IRString("x"), "Age": ir.IRInt(6)},
	})
	p0 := ir.NewParameter("p0", ir.Int64)
	p1 := ir.NewParameter("p1", ir.String)
	p := ir.NewParameter("p", testutil.Person)

	byAge := must(queryir.Where(people, ir.NewLambda(must(queryir.Equal(member(t, p, "Age"), p0))(t), p)))(t)
	byName := must(queryir.Where(byAge, ir.NewLambda(must(queryir.Equal(member(t, p, "Name"), p1))(t), p)))(t)

	return must(ir.NewInjectParameters(
		[]*ir.Parameter{p0, p1},
		[]ir.Node{ir.MustConstant(ir.Int64, ir.IRInt(5)), ir.MustConstant(ir.String, ir.IRString("x"))},
		byName,
	))(t)

}

func TestInjectionPlanBindsDeclaredValues(t *testing.T) {
	marker := injectionMarker(t)
	rewritten := must(rewrite.Rewrite(marker))(t)
	plan := must(binder.ReduceAll(rewritten))(t)
	require.True(t, queryir.Validate(plan).Valid, "plan: %s", ir.Format(plan))

	qc := NewQueryContext()
	res, err := NewInterpreter(fixtureSource()).Evaluate(context.Background(), qc, plan)
	require.NoError(t, err)
	rows, err := Drain(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, []ir.IRValue{ir.IRObject{"Name": ir.IRString("x"), "Age": ir.IRInt(5)}}, rows)

	p0, err := GetParameterValue[int64](qc, "p0")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p0)
	p1, err := GetParameterValue[string](qc, "p1")
	require.NoError(t, err)
	assert.Equal(t, "x", p1)
}

func TestInjectionPlanMatchesDirectMarkerEvaluation(t *testing.T) {
	marker := injectionMarker(t)
	plan := must(binder.ReduceAll(must(rewrite.Rewrite(marker))(t)))(t)

	direct, err := run(t, marker)
	require.NoError(t, err)
	reduced, err := run(t, plan)
	require.NoError(t, err)
	assert.Equal(t, direct, reduced)
}

// peopleAged declares name = age over People.Where(p => p.Age == name).
func peopleAged(t *testing.T, name string, age int64) *ir.InjectParameters {
	t.Helper()
	people := ir.MustConstant(ir.Queryable(testutil.Person), ir.IRArray{
		ir.IRObject{"Name": ir.IRString("x"), "Age": ir.IRInt(5)},
		ir.IRObject{"Name": ir.IRString("y"), "Age": ir.IRInt(5)},
		ir.IRObject{"Name": ir.IRString("x"), "Age": ir.IRInt(6)},
	})
	decl := ir.NewParameter(name, ir.Int64)
	p := ir.NewParameter("p", testutil.Person)
	q := must(queryir.Where(people, ir.NewLambda(must(queryir.Equal(member(t, p, "Age"), decl))(t), p)))(t)
	return must(ir.NewInjectParameters(
		[]*ir.Parameter{decl},
		[]ir.Node{ir.MustConstant(ir.Int64, ir.IRInt(age))},
		q,
	))(t)

}

func TestInjectionPlansWithSharedNameReadTheirOwnValues(t *testing.T) {
	a := ir.NewParameter("a", testutil.Person)
	b := ir.NewParameter("b", testutil.Person)
	q := must(queryir.Join(
		peopleAged(t, "p0", 5),
		peopleAged(t, "p0", 6),
		ir.NewLambda(member(t, a, "Name"), a),
		ir.NewLambda(member(t, b, "Name"), b),
		ir.NewLambda(member(t, a, "Age"), a, b),
	))(t)

	plan := must(binder.ReduceAll(must(rewrite.Rewrite(q))(t)))(t)

	direct, err := run(t, q)
	require.NoError(t, err)
	reduced, err := run(t, plan)
	require.NoError(t, err)

	assert.Equal(t, []ir.IRValue{ir.IRInt(5)}, direct)
	assert.Equal(t, direct, reduced, "plan: %s", ir.Format(plan))
}

func TestLiftedLookupWithoutBindingFails(t *testing.T) {
	c := ir.NewParameter("c", testutil.Customer)
	pred := must(queryir.Equal(member(t, c, "Age"), ir.NewParameter("__age", ir.Int64)))(t)
	q := must(rewrite.Rewrite(must(queryir.Where(customers(), ir.NewLambda(pred, c)))(t)))(t)

	_, err := run(t, q)
	require.Error(t, err)
	assert.True(t, IsBindingError(err))

	qc := NewQueryContext()
	qc.SetParameter("__age", ir.IRInt(29))
	res, err := NewInterpreter(fixtureSource()).Evaluate(context.Background(), qc, q)
	require.NoError(t, err)
	rows, err := Drain(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, []any{"ANATR", "BLAUS"}, field(rows, "CustomerID"))
}

func TestLiftedQueryableParameterReadsDataSet(t *testing.T) {
	set := ir.NewParameter("__set", ir.Queryable(testutil.Customer))
	q := must(rewrite.Rewrite(must(queryir.Take(set, 1))(t)))(t)

	qc := NewQueryContext()
	qc.SetParameter("__set", ir.IRString("Customers"))
	res, err := NewInterpreter(fixtureSource()).Evaluate(context.Background(), qc, q)
	require.NoError(t, err)
	rows, err := Drain(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, []any{"ALFKI"}, field(rows, "CustomerID"))
}
