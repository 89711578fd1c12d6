package rewrite

import (
	"slices"

	"github.com/roach88/querypipe/internal/ir"
)

// Visitor rewrites one node kind per method.
//
// VisitExtension receives node kinds outside the ir package. Implementations
// that do not know such a node should rewrite its children structurally.
type Visitor interface {
	VisitOperator(n *ir.Operator) (ir.Node, error)
	VisitConstant(n *ir.Constant) (ir.Node, error)
	VisitParameter(n *ir.Parameter) (ir.Node, error)
	VisitLambda(n *ir.Lambda) (ir.Node, error)
	VisitMember(n *ir.Member) (ir.Node, error)
	VisitSubquery(n *ir.Subquery) (ir.Node, error)
	VisitInjectParameters(n *ir.InjectParameters) (ir.Node, error)
	VisitExtension(n ir.Node) (ir.Node, error)
}

// Visit dispatches n to the method of v for its kind.
func Visit(v Visitor, n ir.Node) (ir.Node, error) {
	switch node := n.(type) {
	case *ir.Operator:
		return v.VisitOperator(node)
	case *ir.Constant:
		return v.VisitConstant(node)
	case *ir.Parameter:
		return v.VisitParameter(node)
	case *ir.Lambda:
		return v.VisitLambda(node)
	case *ir.Member:
		return v.VisitMember(node)
	case *ir.Subquery:
		return v.VisitSubquery(node)
	case *ir.InjectParameters:
		return v.VisitInjectParameters(node)
	case nil:
		return nil, ir.NewStructuralError(ir.ErrCodeUnsupportedNode, "", "nil node")
	default:
		return v.VisitExtension(n)
	}
}

// Base provides the default behavior for every Visitor method.
// Types embed Base, override only the kinds they care about, and set Outer
// to themselves so recursion into children dispatches back through the
// overriding type.
type Base struct {
	// Outer receives recursive visits. Nil means Base itself.
	Outer Visitor
}

func (b *Base) outer() Visitor {
	if b.Outer != nil {
		return b.Outer
	}
	return b
}

// VisitChildren rewrites every child of n through Outer and rebuilds n only
// if at least one child changed.
func (b *Base) VisitChildren(n ir.Node) (ir.Node, error) {
	children := n.Children()
	var rewritten []ir.Node
	for i, c := range children {
		nc, err := Visit(b.outer(), c)
		if err != nil {
			return nil, err
		}
		if nc != c {
			if rewritten == nil {
				rewritten = slices.Clone(children)
			}
			rewritten[i] = nc
		}
	}
	if rewritten == nil {
		return n, nil
	}
	return n.WithChildren(rewritten)
}

func (b *Base) VisitOperator(n *ir.Operator) (ir.Node, error)   { return b.VisitChildren(n) }
func (b *Base) VisitConstant(n *ir.Constant) (ir.Node, error)   { return n, nil }
func (b *Base) VisitParameter(n *ir.Parameter) (ir.Node, error) { return n, nil }
func (b *Base) VisitLambda(n *ir.Lambda) (ir.Node, error)       { return b.VisitChildren(n) }
func (b *Base) VisitMember(n *ir.Member) (ir.Node, error)       { return b.VisitChildren(n) }
func (b *Base) VisitSubquery(n *ir.Subquery) (ir.Node, error)   { return n, nil }
func (b *Base) VisitExtension(n ir.Node) (ir.Node, error)       { return b.VisitChildren(n) }

func (b *Base) VisitInjectParameters(n *ir.InjectParameters) (ir.Node, error) {
	return b.VisitChildren(n)
}
