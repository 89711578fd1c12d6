package queryir

import (
	"github.com/roach88/querypipe/internal/ir"
)

// Source returns the root of a query: a queryable constant naming the data
// set that produces elements of type elem.
func Source(set string, elem *ir.Type) *ir.Constant {
	return ir.MustConstant(ir.Queryable(elem), ir.IRString(set))
}

// SetName returns the data set a source constant names.
func SetName(c *ir.Constant) (string, bool) {
	if !ir.IsQueryable(c.Type()) {
		return "", false
	}
	s, ok := c.Value().(ir.IRString)
	return string(s), ok
}

func Where(source, predicate ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(whereDef, source, predicate)
}

func Select(source, selector ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(selectDef, source, selector)
}

func OrderBy(source, key ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(orderByDef, source, key)
}

func OrderByDescending(source, key ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(orderByDescendingDef, source, key)
}

// ThenBy adds a secondary ascending key. source must already be ordered.
func ThenBy(source, key ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(thenByDef, source, key)
}

// ThenByDescending adds a secondary descending key. source must already be
// ordered.
func ThenByDescending(source, key ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(thenByDescendingDef, source, key)
}

func Take(source ir.Node, count int64) (*ir.Operator, error) {
	return ir.InferOperator(takeDef, source, ir.MustConstant(ir.Int64, ir.IRInt(count)))
}

// Join correlates outer and inner on equal keys and projects each matching
// pair through result.
func Join(outer, inner, outerKey, innerKey, result ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(joinDef, outer, inner, outerKey, innerKey, result)
}

// ToQueryable lifts an in-memory sequence back into a queryable one.
func ToQueryable(source ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(toQueryableDef, source)
}

func AsEnumerable(source ir.Node) (*ir.Operator, error) {
	return ir.InferOperator(asEnumerableDef, source)
}

// InjectParametersCall builds the install-then-evaluate primitive over
// elements of type elem.
func InjectParametersCall(elem *ir.Type, ctx, plan, names, values ir.Node) (*ir.Operator, error) {
	return ir.NewOperator(injectParametersDef, []*ir.Type{elem}, ctx, plan, names, values)
}

// GetParameterValue reads the named value from ctx, typed as t.
func GetParameterValue(t *ir.Type, ctx ir.Node, name string) (*ir.Operator, error) {
	return ir.NewOperator(getParameterValueDef, []*ir.Type{t}, ctx, ir.MustConstant(ir.String, ir.IRString(name)))
}

// SetParameter installs value into ctx under name.
func SetParameter(ctx, name, value ir.Node) (*ir.Operator, error) {
	return ir.NewOperator(setParameterDef, nil, ctx, name, value)
}

// Block evaluates exprs in order and yields the last.
func Block(exprs ...ir.Node) (*ir.Operator, error) {
	return ir.NewOperator(blockDef, nil, exprs...)
}

// NewArray builds an array of elem from elems. An empty array is allowed.
func NewArray(elem *ir.Type, elems ...ir.Node) (*ir.Operator, error) {
	return ir.NewOperator(newArrayDef, []*ir.Type{elem}, elems...)
}

// Index reads array[i].
func Index(array ir.Node, i int64) (*ir.Operator, error) {
	return ir.NewOperator(indexDef, nil, array, ir.MustConstant(ir.Int64, ir.IRInt(i)))
}

func Equal(a, b ir.Node) (*ir.Operator, error) {
	return ir.NewOperator(equalDef, nil, a, b)
}
