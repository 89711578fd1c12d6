package rewrite

import (
	"github.com/roach88/querypipe/internal/ir"
)

// InjectAt replaces target, found by identity anywhere under root, with
// fn(target). Ancestors are rebuilt on the way up; the rest of the tree is
// shared with root. A root that does not contain target comes back as the
// same instance and fn is not called. Nested subquery models are not
// searched.
func InjectAt(root, target ir.Node, fn func(ir.Node) (ir.Node, error)) (ir.Node, error) {
	inj := &injector{target: target, fn: fn}
	inj.Outer = inj
	return Visit(inj, root)
}

type injector struct {
	Base
	target ir.Node
	fn     func(ir.Node) (ir.Node, error)
}

// at applies fn when n is the target and falls back to visit otherwise.
func (inj *injector) at(n ir.Node, visit func() (ir.Node, error)) (ir.Node, error) {
	if n == inj.target {
		return inj.fn(n)
	}
	return visit()
}

func (inj *injector) VisitOperator(n *ir.Operator) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitOperator(n) })
}

func (inj *injector) VisitConstant(n *ir.Constant) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitConstant(n) })
}

func (inj *injector) VisitParameter(n *ir.Parameter) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitParameter(n) })
}

func (inj *injector) VisitLambda(n *ir.Lambda) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitLambda(n) })
}

func (inj *injector) VisitMember(n *ir.Member) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitMember(n) })
}

func (inj *injector) VisitSubquery(n *ir.Subquery) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitSubquery(n) })
}

func (inj *injector) VisitInjectParameters(n *ir.InjectParameters) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitInjectParameters(n) })
}

func (inj *injector) VisitExtension(n ir.Node) (ir.Node, error) {
	return inj.at(n, func() (ir.Node, error) { return inj.Base.VisitExtension(n) })
}
