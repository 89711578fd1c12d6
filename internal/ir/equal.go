package ir

import (
	"reflect"
	"slices"
)

// Equal reports whether two trees are structurally equal: same kinds, same
// types, same literal values and names, recursively.
//
// Parameters compare by name and type, not identity, so a tree rebuilt from
// scratch equals the original.
func Equal(a, b Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if !SameType(a.Type(), b.Type()) {
		return false
	}
	switch x := a.(type) {
	case *Operator:
		y, ok := b.(*Operator)
		return ok && x.def.Name == y.def.Name &&
			slices.EqualFunc(x.typeArgs, y.typeArgs, SameType) &&
			equalNodes(x.operands, y.operands)
	case *Constant:
		y, ok := b.(*Constant)
		return ok && EqualValues(x.value, y.value)
	case *Parameter:
		y, ok := b.(*Parameter)
		return ok && x.name == y.name
	case *Lambda:
		y, ok := b.(*Lambda)
		return ok && slices.EqualFunc(x.params, y.params, func(p, q *Parameter) bool { return Equal(p, q) }) &&
			Equal(x.body, y.body)
	case *Member:
		y, ok := b.(*Member)
		return ok && x.field.Name == y.field.Name && Equal(x.instance, y.instance)
	case *Subquery:
		y, ok := b.(*Subquery)
		return ok && x.model.Name == y.model.Name && Equal(x.model.Body, y.model.Body)
	case *InjectParameters:
		y, ok := b.(*InjectParameters)
		return ok && slices.EqualFunc(x.params, y.params, func(p, q *Parameter) bool { return Equal(p, q) }) &&
			equalNodes(x.values, y.values) && Equal(x.query, y.query)
	default:
		return reflect.TypeOf(a) == reflect.TypeOf(b) && equalNodes(a.Children(), b.Children())
	}
}

func equalNodes(a, b []Node) bool {
	return slices.EqualFunc(a, b, Equal)
}
