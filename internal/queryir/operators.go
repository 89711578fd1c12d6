package queryir

import (
	"github.com/roach88/querypipe/internal/ir"
)

// Operator names. The set is closed: Lookup knows exactly these.
const (
	OpWhere             = "Where"
	OpSelect            = "Select"
	OpOrderBy           = "OrderBy"
	OpOrderByDescending = "OrderByDescending"
	OpThenBy            = "ThenBy"
	OpThenByDescending  = "ThenByDescending"
	OpTake              = "Take"
	OpJoin              = "Join"
	OpToQueryable       = "ToQueryable"
	OpAsEnumerable      = "AsEnumerable"
	OpInjectParameters  = "InjectParameters"
	OpGetParameterValue = "GetParameterValue"
	OpSetParameter      = "SetParameter"
	OpBlock             = "Block"
	OpNewArray          = "NewArray"
	OpIndex             = "Index"
	OpEqual             = "Equal"
)

func mismatch(op, format string, args ...any) error {
	return ir.NewStructuralError(ir.ErrCodeTypeMismatch, op, format, args...)
}

// queryableElem returns the element type of a queryable operand.
func queryableElem(op string, n ir.Node) (*ir.Type, error) {
	if !ir.IsQueryable(n.Type()) {
		return nil, mismatch(op, "source of type %s is not queryable", n.Type())
	}
	return ir.ElementType(n.Type()), nil
}

// expectQueryable checks that n is a queryable sequence over elem.
func expectQueryable(op string, n ir.Node, elem *ir.Type) error {
	got, err := queryableElem(op, n)
	if err != nil {
		return err
	}
	if !ir.SameType(got, elem) {
		return mismatch(op, "source element %s does not match type argument %s", got, elem)
	}
	return nil
}

// lambdaResult checks that n is a lambda over exactly params and returns its
// result type.
func lambdaResult(op string, n ir.Node, params ...*ir.Type) (*ir.Type, error) {
	t := n.Type()
	if t.Kind() != ir.KindFunc {
		return nil, mismatch(op, "operand of type %s is not a lambda", t)
	}
	got := t.Params()
	if len(got) != len(params) {
		return nil, mismatch(op, "lambda takes %d parameters, want %d", len(got), len(params))
	}
	for i, p := range params {
		if !ir.SameType(got[i], p) {
			return nil, mismatch(op, "lambda parameter %d is %s, want %s", i, got[i], p)
		}
	}
	return t.Result(), nil
}

func expectType(op string, n ir.Node, want *ir.Type, what string) error {
	if !ir.SameType(n.Type(), want) {
		return mismatch(op, "%s must be %s, got %s", what, want, n.Type())
	}
	return nil
}

// inferSourceElem infers a single type argument from a queryable first operand.
func inferSourceElem(op string) func([]ir.Node) ([]*ir.Type, error) {
	return func(operands []ir.Node) ([]*ir.Type, error) {
		elem, err := queryableElem(op, operands[0])
		if err != nil {
			return nil, err
		}
		return []*ir.Type{elem}, nil
	}
}

var whereDef = &ir.OperatorDef{
	Name:       OpWhere,
	TypeParams: 1,
	Arity:      2,
	Infer:      inferSourceElem(OpWhere),
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		elem := typeArgs[0]
		if err := expectQueryable(OpWhere, operands[0], elem); err != nil {
			return nil, err
		}
		res, err := lambdaResult(OpWhere, operands[1], elem)
		if err != nil {
			return nil, err
		}
		if !ir.SameType(res, ir.Bool) {
			return nil, mismatch(OpWhere, "predicate returns %s, want bool", res)
		}
		return ir.Queryable(elem), nil
	},
}

var selectDef = &ir.OperatorDef{
	Name:       OpSelect,
	TypeParams: 2,
	Arity:      2,
	Infer: func(operands []ir.Node) ([]*ir.Type, error) {
		elem, err := queryableElem(OpSelect, operands[0])
		if err != nil {
			return nil, err
		}
		res, err := lambdaResult(OpSelect, operands[1], elem)
		if err != nil {
			return nil, err
		}
		return []*ir.Type{elem, res}, nil
	},
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		elem, result := typeArgs[0], typeArgs[1]
		if err := expectQueryable(OpSelect, operands[0], elem); err != nil {
			return nil, err
		}
		res, err := lambdaResult(OpSelect, operands[1], elem)
		if err != nil {
			return nil, err
		}
		if !ir.SameType(res, result) {
			return nil, mismatch(OpSelect, "selector returns %s, type argument is %s", res, result)
		}
		return ir.Queryable(result), nil
	},
}

// orderingDef declares OrderBy-like operators. Secondary orderings require a
// source that is already ordered.
func orderingDef(name string, secondary bool) *ir.OperatorDef {
	return &ir.OperatorDef{
		Name:       name,
		TypeParams: 2,
		Arity:      2,
		Infer: func(operands []ir.Node) ([]*ir.Type, error) {
			elem, err := queryableElem(name, operands[0])
			if err != nil {
				return nil, err
			}
			key, err := lambdaResult(name, operands[1], elem)
			if err != nil {
				return nil, err
			}
			return []*ir.Type{elem, key}, nil
		},
		Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
			elem, key := typeArgs[0], typeArgs[1]
			if secondary && !ir.IsOrderedQueryable(operands[0].Type()) {
				return nil, mismatch(name, "source of type %s is not ordered", operands[0].Type())
			}
			if err := expectQueryable(name, operands[0], elem); err != nil {
				return nil, err
			}
			res, err := lambdaResult(name, operands[1], elem)
			if err != nil {
				return nil, err
			}
			if !ir.SameType(res, key) {
				return nil, mismatch(name, "key selector returns %s, type argument is %s", res, key)
			}
			return ir.OrderedQueryable(elem), nil
		},
	}
}

var (
	orderByDef           = orderingDef(OpOrderBy, false)
	orderByDescendingDef = orderingDef(OpOrderByDescending, false)
	thenByDef            = orderingDef(OpThenBy, true)
	thenByDescendingDef  = orderingDef(OpThenByDescending, true)
)

var takeDef = &ir.OperatorDef{
	Name:       OpTake,
	TypeParams: 1,
	Arity:      2,
	Infer:      inferSourceElem(OpTake),
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if err := expectQueryable(OpTake, operands[0], typeArgs[0]); err != nil {
			return nil, err
		}
		if err := expectType(OpTake, operands[1], ir.Int64, "count"); err != nil {
			return nil, err
		}
		return ir.Queryable(typeArgs[0]), nil
	},
}

// Join[TOuter, TInner, TKey, TResult](outer, inner, outerKey, innerKey, result)
var joinDef = &ir.OperatorDef{
	Name:       OpJoin,
	TypeParams: 4,
	Arity:      5,
	Infer: func(operands []ir.Node) ([]*ir.Type, error) {
		outer, err := queryableElem(OpJoin, operands[0])
		if err != nil {
			return nil, err
		}
		inner, err := queryableElem(OpJoin, operands[1])
		if err != nil {
			return nil, err
		}
		key, err := lambdaResult(OpJoin, operands[2], outer)
		if err != nil {
			return nil, err
		}
		res, err := lambdaResult(OpJoin, operands[4], outer, inner)
		if err != nil {
			return nil, err
		}
		return []*ir.Type{outer, inner, key, res}, nil
	},
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		outer, inner, key, result := typeArgs[0], typeArgs[1], typeArgs[2], typeArgs[3]
		if err := expectQueryable(OpJoin, operands[0], outer); err != nil {
			return nil, err
		}
		if err := expectQueryable(OpJoin, operands[1], inner); err != nil {
			return nil, err
		}
		for i, src := range []*ir.Type{outer, inner} {
			k, err := lambdaResult(OpJoin, operands[2+i], src)
			if err != nil {
				return nil, err
			}
			if !ir.SameType(k, key) {
				return nil, mismatch(OpJoin, "key selector %d returns %s, want %s", i, k, key)
			}
		}
		res, err := lambdaResult(OpJoin, operands[4], outer, inner)
		if err != nil {
			return nil, err
		}
		if !ir.SameType(res, result) {
			return nil, mismatch(OpJoin, "result selector returns %s, type argument is %s", res, result)
		}
		return ir.Queryable(result), nil
	},
}

var toQueryableDef = &ir.OperatorDef{
	Name:       OpToQueryable,
	TypeParams: 1,
	Arity:      1,
	Infer: func(operands []ir.Node) ([]*ir.Type, error) {
		elem := ir.ElementType(operands[0].Type())
		if elem == nil {
			return nil, mismatch(OpToQueryable, "source of type %s is not a sequence", operands[0].Type())
		}
		return []*ir.Type{elem}, nil
	},
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if elem := ir.ElementType(operands[0].Type()); elem == nil || !ir.SameType(elem, typeArgs[0]) {
			return nil, mismatch(OpToQueryable, "source of type %s is not a sequence of %s", operands[0].Type(), typeArgs[0])
		}
		return ir.Queryable(typeArgs[0]), nil
	},
}

var asEnumerableDef = &ir.OperatorDef{
	Name:       OpAsEnumerable,
	TypeParams: 1,
	Arity:      1,
	Infer:      inferSourceElem(OpAsEnumerable),
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if err := expectQueryable(OpAsEnumerable, operands[0], typeArgs[0]); err != nil {
			return nil, err
		}
		return ir.Enumerable(typeArgs[0]), nil
	},
}

// InjectParameters[T](ctx, plan, names, values) where
// plan: func(Array[string], Array[any]) Sequence[T].
var injectParametersDef = &ir.OperatorDef{
	Name:       OpInjectParameters,
	TypeParams: 1,
	Arity:      4,
	Infer: func(operands []ir.Node) ([]*ir.Type, error) {
		res, err := lambdaResult(OpInjectParameters, operands[1], NamesArray, ValuesArray)
		if err != nil {
			return nil, err
		}
		elem := ir.ElementType(res)
		if elem == nil {
			return nil, mismatch(OpInjectParameters, "plan returns %s, want a sequence", res)
		}
		return []*ir.Type{elem}, nil
	},
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if err := expectType(OpInjectParameters, operands[0], ir.QueryContext, "context"); err != nil {
			return nil, err
		}
		res, err := lambdaResult(OpInjectParameters, operands[1], NamesArray, ValuesArray)
		if err != nil {
			return nil, err
		}
		if elem := ir.ElementType(res); elem == nil || !ir.SameType(elem, typeArgs[0]) {
			return nil, mismatch(OpInjectParameters, "plan returns %s, want a sequence of %s", res, typeArgs[0])
		}
		if err := expectType(OpInjectParameters, operands[2], NamesArray, "names"); err != nil {
			return nil, err
		}
		if err := expectType(OpInjectParameters, operands[3], ValuesArray, "values"); err != nil {
			return nil, err
		}
		return ir.Queryable(typeArgs[0]), nil
	},
}

// GetParameterValue[T](ctx, name). The type argument is never inferred; it
// is always the static type of the parameter being lifted.
var getParameterValueDef = &ir.OperatorDef{
	Name:       OpGetParameterValue,
	TypeParams: 1,
	Arity:      2,
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if err := expectType(OpGetParameterValue, operands[0], ir.QueryContext, "context"); err != nil {
			return nil, err
		}
		if err := expectType(OpGetParameterValue, operands[1], ir.String, "name"); err != nil {
			return nil, err
		}
		return typeArgs[0], nil
	},
}

var setParameterDef = &ir.OperatorDef{
	Name:  OpSetParameter,
	Arity: 3,
	Resolve: func(_ []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		if err := expectType(OpSetParameter, operands[0], ir.QueryContext, "context"); err != nil {
			return nil, err
		}
		if err := expectType(OpSetParameter, operands[1], ir.String, "name"); err != nil {
			return nil, err
		}
		return ir.Void, nil
	},
}

// Block evaluates its operands in order and yields the last one.
var blockDef = &ir.OperatorDef{
	Name:     OpBlock,
	Arity:    1,
	Variadic: true,
	Resolve: func(_ []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		return operands[len(operands)-1].Type(), nil
	},
}

var newArrayDef = &ir.OperatorDef{
	Name:       OpNewArray,
	TypeParams: 1,
	Variadic:   true,
	Infer: func(operands []ir.Node) ([]*ir.Type, error) {
		if len(operands) == 0 {
			return nil, ir.NewStructuralError(ir.ErrCodeTypeArgumentMismatch, OpNewArray,
				"cannot infer element type of an empty array")
		}
		return []*ir.Type{operands[0].Type()}, nil
	},
	Resolve: func(typeArgs []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		for i, e := range operands {
			if !ir.AssignableTo(e.Type(), typeArgs[0]) {
				return nil, mismatch(OpNewArray, "element %d of type %s is not assignable to %s", i, e.Type(), typeArgs[0])
			}
		}
		return ir.Array(typeArgs[0]), nil
	},
}

var indexDef = &ir.OperatorDef{
	Name:  OpIndex,
	Arity: 2,
	Resolve: func(_ []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		arr := operands[0].Type()
		if arr.Kind() != ir.KindArray {
			return nil, mismatch(OpIndex, "operand of type %s is not an array", arr)
		}
		if err := expectType(OpIndex, operands[1], ir.Int64, "index"); err != nil {
			return nil, err
		}
		return arr.Elem(), nil
	},
}

var equalDef = &ir.OperatorDef{
	Name:  OpEqual,
	Arity: 2,
	Resolve: func(_ []*ir.Type, operands []ir.Node) (*ir.Type, error) {
		a, b := operands[0].Type(), operands[1].Type()
		if !ir.AssignableTo(a, b) && !ir.AssignableTo(b, a) {
			return nil, mismatch(OpEqual, "cannot compare %s with %s", a, b)
		}
		return ir.Bool, nil
	},
}
