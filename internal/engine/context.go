package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/querypipe/internal/ir"
)

// QueryContext is the per-execution parameter table. Injection plans install
// values into it by name and lifted lookups read them back.
//
// A QueryContext belongs to one execution and is not safe for concurrent
// use. Nested queries share their parent's context.
type QueryContext struct {
	params map[string]ir.IRValue
}

// NewQueryContext creates an empty context.
func NewQueryContext() *QueryContext {
	return &QueryContext{params: make(map[string]ir.IRValue)}
}

// SetParameter binds name to v, replacing any earlier binding.
func (qc *QueryContext) SetParameter(name string, v ir.IRValue) {
	if v == nil {
		v = ir.IRNull{}
	}
	qc.params[name] = v
}

// ParameterValue returns the value bound to name.
func (qc *QueryContext) ParameterValue(name string) (ir.IRValue, bool) {
	v, ok := qc.params[name]
	return v, ok
}

// Names returns the bound names in sorted order.
func (qc *QueryContext) Names() []string {
	return slices.Sorted(maps.Keys(qc.params))
}

// Lookup returns the value bound to name, checked against t.
// A missing name is ErrCodeBindingMissing; a value t cannot hold is
// ErrCodeBindingType.
func (qc *QueryContext) Lookup(name string, t *ir.Type) (ir.IRValue, error) {
	v, ok := qc.params[name]
	if !ok {
		return nil, NewBindingMissingError(name)
	}
	if !ir.ValueAssignable(v, t) {
		return nil, NewBindingTypeError(name, t.String(), ir.GoValue(v))
	}
	return v, nil
}

// GetParameterValue returns the value bound to name as a Go value of type T
// (string, int64, bool, []any, map[string]any, or ir.IRValue itself).
func GetParameterValue[T any](qc *QueryContext, name string) (T, error) {
	var zero T
	v, ok := qc.ParameterValue(name)
	if !ok {
		return zero, NewBindingMissingError(name)
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	if t, ok := ir.GoValue(v).(T); ok {
		return t, nil
	}
	return zero, NewBindingTypeError(name, typeName[T](), ir.GoValue(v))
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", &zero)[1:]
}
