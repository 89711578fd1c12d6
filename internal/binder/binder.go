// Package binder reduces injection markers to executable plans.
//
// A marker Inject{p0 = v0, p1 = v1; query} becomes
//
//	InjectParameters[T](ctx,
//	    (names, values) => Block(
//	        SetParameter(ctx, Index(names, 0), Index(values, 0)),
//	        SetParameter(ctx, Index(names, 1), Index(values, 1)),
//	        query),
//	    NewArray[string]("p0", "p1"),
//	    NewArray[any](v0, v1))
//
// where T is the element type of query. Parameters are installed in
// declaration order and all of them before query starts, so a later value
// can only see an earlier one through a context lookup.
//
// The inner query is expected to have been rewritten already: references to
// the declared parameters must be GetParameterValue lookups, not bare
// parameters. The output is structurally identical for identical input.
package binder

import (
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/rewrite"
)

// Plan closure parameter names.
const (
	NamesParameter  = "names"
	ValuesParameter = "values"
)

// Reduce builds the injection plan for the given declarations.
//
// Empty lists, a length mismatch, duplicate names, a value not assignable to
// its parameter and a non-sequence query are structural errors. A length
// mismatch cannot come from a well-formed marker; it signals an internal
// consistency failure upstream.
//
// The plan installs its values into the shared query context by name,
// overwriting earlier values. Plans for sibling markers that declare the
// same name are safe only while each side is drained before the next one
// starts, which holds for every operator the interpreter evaluates.
func Reduce(params []*ir.Parameter, values []ir.Node, query ir.Node) (*ir.Operator, error) {
	// Marker construction enforces every declaration invariant.
	if _, err := ir.NewInjectParameters(params, values, query); err != nil {
		return nil, err
	}
	elem := ir.ElementType(query.Type())
	if elem == nil {
		return nil, ir.NewStructuralError(ir.ErrCodeTypeMismatch, queryir.OpInjectParameters,
			"inner query of type %s is not a sequence", query.Type())
	}

	ctx := queryir.QueryContextParameter
	namesParam := ir.NewParameter(NamesParameter, queryir.NamesArray)
	valuesParam := ir.NewParameter(ValuesParameter, queryir.ValuesArray)

	steps := make([]ir.Node, 0, len(params)+1)
	names := make([]ir.Node, 0, len(params))
	for i, p := range params {
		name, err := queryir.Index(namesParam, int64(i))
		if err != nil {
			return nil, err
		}
		value, err := queryir.Index(valuesParam, int64(i))
		if err != nil {
			return nil, err
		}
		set, err := queryir.SetParameter(ctx, name, value)
		if err != nil {
			return nil, err
		}
		steps = append(steps, set)
		names = append(names, ir.MustConstant(ir.String, ir.IRString(p.Name())))
	}
	steps = append(steps, query)

	body, err := queryir.Block(steps...)
	if err != nil {
		return nil, err
	}
	nameArray, err := queryir.NewArray(ir.String, names...)
	if err != nil {
		return nil, err
	}
	valueArray, err := queryir.NewArray(ir.Any, values...)
	if err != nil {
		return nil, err
	}
	return queryir.InjectParametersCall(elem, ctx, ir.NewLambda(body, namesParam, valuesParam), nameArray, valueArray)
}

// ReduceMarker reduces a single marker.
func ReduceMarker(m *ir.InjectParameters) (*ir.Operator, error) {
	return Reduce(m.Params(), m.Values(), m.Query())
}

// ReduceAll replaces every marker in n, innermost first. A tree without
// markers comes back as the same instance.
func ReduceAll(n ir.Node) (ir.Node, error) {
	r := &reducer{}
	r.Outer = r
	return rewrite.Visit(r, n)
}

type reducer struct {
	rewrite.Base
}

func (r *reducer) VisitInjectParameters(m *ir.InjectParameters) (ir.Node, error) {
	n, err := r.VisitChildren(m)
	if err != nil {
		return nil, err
	}
	return ReduceMarker(n.(*ir.InjectParameters))
}

// Subquery bodies are reduced in place; expansion is the rewriter's job.
func (r *reducer) VisitSubquery(s *ir.Subquery) (ir.Node, error) {
	model := s.Model()
	body, err := rewrite.Visit(r, model.Body)
	if err != nil {
		return nil, err
	}
	if body == model.Body {
		return s, nil
	}
	return ir.NewSubquery(&ir.QueryModel{Name: model.Name, Body: body}), nil
}
