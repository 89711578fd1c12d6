package queryir

import (
	"slices"

	"github.com/roach88/querypipe/internal/ir"
)

// Shared types of the injection plan's runtime arrays.
var (
	NamesArray  = ir.Array(ir.String)
	ValuesArray = ir.Array(ir.Any)
)

// QueryContextParameter is the execution context every rewritten tree reads
// deferred values from. Nested queries share it.
var QueryContextParameter = ir.NewParameter("queryContext", ir.QueryContext)

// registry maps operator names to their definitions.
// CRITICAL: Initialised once with the package and read-only afterwards.
var registry = newRegistry(
	whereDef,
	selectDef,
	orderByDef,
	orderByDescendingDef,
	thenByDef,
	thenByDescendingDef,
	takeDef,
	joinDef,
	toQueryableDef,
	asEnumerableDef,
	injectParametersDef,
	getParameterValueDef,
	setParameterDef,
	blockDef,
	newArrayDef,
	indexDef,
	equalDef,
)

func newRegistry(defs ...*ir.OperatorDef) map[string]*ir.OperatorDef {
	m := make(map[string]*ir.OperatorDef, len(defs))
	for _, d := range defs {
		if _, dup := m[d.Name]; dup {
			panic("queryir: duplicate operator " + d.Name)
		}
		m[d.Name] = d
	}
	return m
}

// Lookup returns the definition registered under name.
func Lookup(name string) (*ir.OperatorDef, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names returns every registered operator name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// watched maps marker operators to the operand whose type drives their
// type argument.
var watched = map[string]int{
	OpInjectParameters: 1,
	OpToQueryable:      0,
}

// WatchedOperand reports whether name is a marker operator and, if so,
// which operand's type change forces re-instantiation.
func WatchedOperand(name string) (int, bool) {
	i, ok := watched[name]
	return i, ok
}
