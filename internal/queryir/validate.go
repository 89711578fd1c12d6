package queryir

import (
	"errors"

	"github.com/roach88/querypipe/internal/ir"
)

// ValidationResult lists every structural problem found in a tree.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	// Errors in depth-first order.
	Errors []*ir.StructuralError
}

// Err returns the first error, or nil when the tree is valid.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Validate walks a tree and reports every violation instead of stopping at
// the first:
//  1. operators must be catalogue operators and must still type-check
//  2. parameters must be bound by an enclosing lambda or injection marker,
//     carry a deferred prefix, or be QueryContextParameter
//
// Nested subquery bodies are validated in the enclosing scope, since a
// nested query may correlate with the outer lambda's parameters.
//
// Validate is a pure function with no side effects.
func Validate(n ir.Node) ValidationResult {
	v := &validator{scope: map[string]int{}}
	v.validate(n)
	return ValidationResult{
		Valid:  len(v.errs) == 0,
		Errors: v.errs,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errs  []*ir.StructuralError
	scope map[string]int
}

func (v *validator) add(err error) {
	var se *ir.StructuralError
	if errors.As(err, &se) {
		v.errs = append(v.errs, se)
		return
	}
	v.errs = append(v.errs, ir.NewStructuralError(ir.ErrCodeTypeMismatch, "", "%v", err))
}

func (v *validator) bind(params []*ir.Parameter) func() {
	for _, p := range params {
		v.scope[p.Name()]++
	}
	return func() {
		for _, p := range params {
			v.scope[p.Name()]--
		}
	}
}

func (v *validator) validate(n ir.Node) {
	if n == nil {
		v.add(ir.NewStructuralError(ir.ErrCodeUnsupportedNode, "", "nil node"))
		return
	}
	switch node := n.(type) {
	case *ir.Operator:
		def, ok := Lookup(node.Name())
		if !ok || def != node.Def() {
			v.add(ir.NewStructuralError(ir.ErrCodeUnknownOperator, node.Name(), "operator is not in the catalogue"))
		} else if _, err := ir.NewOperator(def, node.TypeArgs(), node.Operands()...); err != nil {
			v.add(err)
		}
		for _, op := range node.Operands() {
			v.validate(op)
		}
	case *ir.Parameter:
		v.validateParameter(node)
	case *ir.Lambda:
		unbind := v.bind(node.Params())
		v.validate(node.Body())
		unbind()
	case *ir.Subquery:
		v.validate(node.Model().Body)
	case *ir.InjectParameters:
		for _, val := range node.Values() {
			v.validate(val)
		}
		unbind := v.bind(node.Params())
		v.validate(node.Query())
		unbind()
	default:
		for _, c := range n.Children() {
			v.validate(c)
		}
	}
}

func (v *validator) validateParameter(p *ir.Parameter) {
	switch {
	case p == QueryContextParameter:
	case p.Name() == QueryContextParameter.Name() && ir.SameType(p.Type(), ir.QueryContext):
	case ir.IsDeferred(p.Name()):
	case v.scope[p.Name()] > 0:
	default:
		v.add(ir.NewStructuralError(ir.ErrCodeUnboundParameter, p.Name(), "parameter is not bound in scope"))
	}
}
