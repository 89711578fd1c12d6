package ir

import (
	"slices"
	"strings"
)

// Kind classifies a Type.
type Kind int

const (
	KindOpaque Kind = iota
	KindScalar
	KindStruct
	KindSequence
	KindArray
	KindOptional
	KindFunc
)

// Sequence family names. A sequence type is one of these families applied
// to a single element type.
const (
	FamilyQueryable        = "Queryable"
	FamilyOrderedQueryable = "OrderedQueryable"
	FamilyEnumerable       = "Enumerable"
	FamilyList             = "List"
	FamilyArray            = "Array"
	FamilyOptional         = "Optional"
)

// Field is an accessible field or property of a type.
//
// Indexer marks an "item at position" accessor. Indexers are part of the
// type surface but cannot be read without an argument.
type Field struct {
	Name    string
	Type    *Type
	Indexer bool
}

// Type is an immutable static type descriptor.
//
// Struct types are nominal: two struct types are the same type when their
// names match. Generic types (sequences, arrays, optionals, funcs) are
// structural over their arguments.
type Type struct {
	name       string
	kind       Kind
	args       []*Type
	fields     []Field
	implements []*Type
}

// Capability types. These never appear as node types; they are only listed
// in a type's implemented set.
var (
	// Comparable is implemented by types with a total order.
	Comparable = &Type{name: "Comparable", kind: KindOpaque}
)

// Built-in scalar and marker types.
var (
	Int64        = &Type{name: "int64", kind: KindScalar, implements: []*Type{Comparable}}
	Bool         = &Type{name: "bool", kind: KindScalar, implements: []*Type{Comparable}}
	String       = newStringType()
	Any          = &Type{name: "any", kind: KindOpaque}
	Void         = &Type{name: "void", kind: KindOpaque}
	QueryContext = &Type{name: "QueryContext", kind: KindOpaque}
)

func newStringType() *Type {
	t := &Type{name: "string", kind: KindScalar, implements: []*Type{Comparable}}
	t.fields = []Field{
		{Name: "Length", Type: Int64},
		{Name: "Chars", Type: t, Indexer: true},
	}
	return t
}

// Queryable returns the queryable sequence type over elem.
func Queryable(elem *Type) *Type {
	return &Type{
		name:       FamilyQueryable,
		kind:       KindSequence,
		args:       []*Type{elem},
		implements: []*Type{Enumerable(elem)},
	}
}

// OrderedQueryable returns the ordered queryable sequence type over elem.
// It implements Queryable(elem).
func OrderedQueryable(elem *Type) *Type {
	return &Type{
		name:       FamilyOrderedQueryable,
		kind:       KindSequence,
		args:       []*Type{elem},
		implements: []*Type{Queryable(elem), Enumerable(elem)},
	}
}

// Enumerable returns an in-memory (non-queryable) sequence type over elem.
func Enumerable(elem *Type) *Type {
	return &Type{name: FamilyEnumerable, kind: KindSequence, args: []*Type{elem}}
}

// List returns a materialized list type over elem.
func List(elem *Type) *Type {
	return &Type{
		name:       FamilyList,
		kind:       KindSequence,
		args:       []*Type{elem},
		implements: []*Type{Enumerable(elem)},
		fields: []Field{
			{Name: "Count", Type: Int64},
			{Name: "Capacity", Type: Int64},
			{Name: "IsReadOnly", Type: Bool},
			{Name: "Item", Type: elem, Indexer: true},
		},
	}
}

// Array returns a fixed-size array type over elem.
func Array(elem *Type) *Type {
	return &Type{
		name:       FamilyArray,
		kind:       KindArray,
		args:       []*Type{elem},
		implements: []*Type{Enumerable(elem)},
		fields: []Field{
			{Name: "Length", Type: Int64},
			{Name: "Rank", Type: Int64},
			{Name: "IsFixedSize", Type: Bool},
			{Name: "IsSynchronized", Type: Bool},
		},
	}
}

// Optional returns the nullable wrapper of elem. It is comparable when elem is.
func Optional(elem *Type) *Type {
	t := &Type{
		name: FamilyOptional,
		kind: KindOptional,
		args: []*Type{elem},
		fields: []Field{
			{Name: "HasValue", Type: Bool},
			{Name: "Value", Type: elem},
		},
	}
	if Implements(elem, Comparable) {
		t.implements = []*Type{Comparable}
	}
	return t
}

// Func returns the type of a lambda taking params and producing result.
func Func(result *Type, params ...*Type) *Type {
	args := make([]*Type, 0, len(params)+1)
	args = append(args, params...)
	args = append(args, result)
	return &Type{name: "func", kind: KindFunc, args: args}
}

// NewStruct returns a nominal struct type. Comparable struct types implement
// the Comparable capability.
func NewStruct(name string, comparable bool, fields ...Field) *Type {
	t := &Type{name: name, kind: KindStruct, fields: slices.Clone(fields)}
	if comparable {
		t.implements = []*Type{Comparable}
	}
	return t
}

// Name returns the type's name, or the family name for generic types.
func (t *Type) Name() string { return t.name }

// Kind returns the type's kind.
func (t *Type) Kind() Kind { return t.kind }

// Args returns the generic arguments. For func types the result is last.
func (t *Type) Args() []*Type { return slices.Clone(t.args) }

// Fields returns the accessible fields, including indexers.
func (t *Type) Fields() []Field { return slices.Clone(t.fields) }

// Field looks up a field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Elem returns the single generic argument of sequence, array and optional
// types, or nil.
func (t *Type) Elem() *Type {
	switch t.kind {
	case KindSequence, KindArray, KindOptional:
		return t.args[0]
	}
	return nil
}

// Result returns the result type of a func type, or nil.
func (t *Type) Result() *Type {
	if t.kind != KindFunc {
		return nil
	}
	return t.args[len(t.args)-1]
}

// Params returns the parameter types of a func type.
func (t *Type) Params() []*Type {
	if t.kind != KindFunc {
		return nil
	}
	return slices.Clone(t.args[:len(t.args)-1])
}

// String renders the type, e.g. "Queryable[Customer]".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindFunc:
		params := make([]string, 0, len(t.args)-1)
		for _, p := range t.args[:len(t.args)-1] {
			params = append(params, p.String())
		}
		return "func(" + strings.Join(params, ", ") + ") " + t.Result().String()
	case KindSequence, KindArray, KindOptional:
		return t.name + "[" + t.args[0].String() + "]"
	default:
		return t.name
	}
}

// SameType reports whether a and b denote the same type.
func SameType(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.name != b.name || len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if !SameType(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

// Implements reports whether t is capability c or lists it (directly or
// through another implemented type) in its implemented set.
func Implements(t, c *Type) bool {
	if t == nil || c == nil {
		return false
	}
	if SameType(t, c) {
		return true
	}
	for _, i := range t.implements {
		if Implements(i, c) {
			return true
		}
	}
	return false
}

// findFamily returns the first type among t and its capabilities that belongs
// to the named generic family.
func findFamily(t *Type, family string) *Type {
	if t == nil {
		return nil
	}
	if t.kind == KindSequence && t.name == family {
		return t
	}
	for _, i := range t.implements {
		if f := findFamily(i, family); f != nil {
			return f
		}
	}
	return nil
}

// IsQueryable reports whether t is a queryable sequence, either directly or
// through a capability it implements (an ordered queryable is queryable).
func IsQueryable(t *Type) bool {
	return findFamily(t, FamilyQueryable) != nil
}

// IsOrderedQueryable reports whether t is an ordered queryable sequence.
func IsOrderedQueryable(t *Type) bool {
	return findFamily(t, FamilyOrderedQueryable) != nil
}

// IsSequence reports whether t is enumerable in any form.
func IsSequence(t *Type) bool {
	return findFamily(t, FamilyEnumerable) != nil
}

// ElementType returns the element type of a sequence type. Queryable
// families take precedence over plain enumerables. Returns nil for
// non-sequence types.
func ElementType(t *Type) *Type {
	for _, family := range []string{FamilyOrderedQueryable, FamilyQueryable, FamilyEnumerable} {
		if f := findFamily(t, family); f != nil {
			return f.args[0]
		}
	}
	return nil
}

// AssignableTo reports whether a value of type src may be used where dst is
// expected.
func AssignableTo(src, dst *Type) bool {
	switch {
	case SameType(src, dst):
		return true
	case SameType(dst, Any):
		return true
	case dst.kind == KindOptional && SameType(src, dst.args[0]):
		return true
	case dst.kind == KindFunc && src.kind == KindFunc:
		return len(src.args) == len(dst.args) && funcAssignable(src, dst)
	}
	for _, i := range src.implements {
		if AssignableTo(i, dst) {
			return true
		}
	}
	return false
}

func funcAssignable(src, dst *Type) bool {
	for i, p := range dst.args[:len(dst.args)-1] {
		if !SameType(src.args[i], p) {
			return false
		}
	}
	return AssignableTo(src.Result(), dst.Result())
}

// TypeKey is the identifier used to key per-type configuration such as field
// denylists: the family name for generic types, the declared name otherwise.
func TypeKey(t *Type) string {
	return t.name
}
