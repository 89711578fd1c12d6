package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Node is a query IR node.
//
// The interface is deliberately not sealed: passes handle the kinds they know
// and fall back to Children/WithChildren for anything else.
//
// WithChildren must return the receiver itself when every child is the same
// instance as before. Callers rely on pointer identity to detect "no change".
type Node interface {
	// Type is the static type the node produces.
	Type() *Type

	// Children returns the rewritable children in a fixed order.
	Children() []Node

	// WithChildren rebuilds the node over replacement children.
	WithChildren(children []Node) (Node, error)
}

// Deferred runtime parameter prefixes. A Parameter whose name starts with
// one of these is resolved from the execution context at run time.
const (
	DeferredPrefix       = "__"
	LegacyDeferredPrefix = "_outer_"
)

// DefaultDeferredPrefixes lists every recognised deferred naming scheme.
var DefaultDeferredPrefixes = []string{DeferredPrefix, LegacyDeferredPrefix}

// IsDeferred reports whether name marks a deferred runtime parameter under
// the default naming schemes.
func IsDeferred(name string) bool {
	return HasPrefix(name, DefaultDeferredPrefixes)
}

// HasPrefix reports whether name starts with any of prefixes.
func HasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// sameNodes reports whether a and b hold the same node instances.
func sameNodes(a, b []Node) bool {
	return slices.Equal(a, b)
}

func childCountError(node string, want, got int) error {
	return NewStructuralError(ErrCodeArityMismatch, node, "expected %d children, got %d", want, got)
}

// Constant is an immutable literal.
type Constant struct {
	typ   *Type
	value IRValue
}

// NewConstant creates a literal of type t.
func NewConstant(t *Type, v IRValue) (*Constant, error) {
	if v == nil {
		v = IRNull{}
	}
	if !ValueAssignable(v, t) {
		return nil, NewStructuralError(ErrCodeTypeMismatch, "Constant", "value %T is not assignable to %s", v, t)
	}
	return &Constant{typ: t, value: v}, nil
}

// MustConstant is like NewConstant but panics on error.
// Use only in tests or static tables where inputs are known to be valid.
func MustConstant(t *Type, v IRValue) *Constant {
	c, err := NewConstant(t, v)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Constant) Type() *Type      { return c.typ }
func (c *Constant) Value() IRValue   { return c.value }
func (c *Constant) Children() []Node { return nil }
func (c *Constant) String() string   { return Format(c) }
func (c *Constant) WithChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("Constant", 0, len(children))
	}
	return c, nil
}

// IsNull reports whether the literal is null.
func (c *Constant) IsNull() bool {
	_, ok := c.value.(IRNull)
	return ok
}

// Parameter is a named placeholder, bound either by an enclosing Lambda or,
// when its name carries a deferred prefix, by the execution context.
type Parameter struct {
	name string
	typ  *Type
}

// NewParameter creates a parameter.
func NewParameter(name string, t *Type) *Parameter {
	return &Parameter{name: name, typ: t}
}

func (p *Parameter) Type() *Type      { return p.typ }
func (p *Parameter) Name() string     { return p.name }
func (p *Parameter) Children() []Node { return nil }
func (p *Parameter) String() string   { return Format(p) }
func (p *Parameter) WithChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("Parameter", 0, len(children))
	}
	return p, nil
}

// Lambda is a reusable projection or predicate.
type Lambda struct {
	params []*Parameter
	body   Node
	typ    *Type
}

// NewLambda creates a lambda over params. Its type is
// Func(body type, param types...).
func NewLambda(body Node, params ...*Parameter) *Lambda {
	paramTypes := make([]*Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.typ
	}
	return &Lambda{
		params: slices.Clone(params),
		body:   body,
		typ:    Func(body.Type(), paramTypes...),
	}
}

func (l *Lambda) Type() *Type          { return l.typ }
func (l *Lambda) Params() []*Parameter { return slices.Clone(l.params) }
func (l *Lambda) Body() Node           { return l.body }
func (l *Lambda) Children() []Node     { return []Node{l.body} }
func (l *Lambda) String() string       { return Format(l) }
func (l *Lambda) WithChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Lambda", 1, len(children))
	}
	if children[0] == l.body {
		return l, nil
	}
	return NewLambda(children[0], l.params...), nil
}

// Member reads a field or property of its instance.
type Member struct {
	instance Node
	field    Field
}

// NewMember creates a field access. The field must exist on the instance's
// type and must not be an indexer.
func NewMember(instance Node, field string) (*Member, error) {
	f, ok := instance.Type().Field(field)
	if !ok {
		return nil, NewStructuralError(ErrCodeUnknownField, "Member", "type %s has no field %q", instance.Type(), field)
	}
	if f.Indexer {
		return nil, NewStructuralError(ErrCodeUnknownField, "Member", "field %q of %s is an indexer", field, instance.Type())
	}
	return &Member{instance: instance, field: f}, nil
}

func (m *Member) Type() *Type      { return m.field.Type }
func (m *Member) Instance() Node   { return m.instance }
func (m *Member) Field() string    { return m.field.Name }
func (m *Member) Children() []Node { return []Node{m.instance} }
func (m *Member) String() string   { return Format(m) }
func (m *Member) WithChildren(children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, childCountError("Member", 1, len(children))
	}
	if children[0] == m.instance {
		return m, nil
	}
	return NewMember(children[0], m.field.Name)
}

// QueryModel is an independently compiled nested query description.
type QueryModel struct {
	// Name identifies the nested query in logs and plan output.
	Name string

	// Body is the nested query tree.
	Body Node
}

// Subquery references a nested query model. The model is owned by the
// marker and is not a rewritable child: only the subquery expander descends
// into it.
type Subquery struct {
	model *QueryModel
}

// NewSubquery creates a nested query marker.
func NewSubquery(model *QueryModel) *Subquery {
	return &Subquery{model: model}
}

func (s *Subquery) Type() *Type        { return s.model.Body.Type() }
func (s *Subquery) Model() *QueryModel { return s.model }
func (s *Subquery) Children() []Node   { return nil }
func (s *Subquery) String() string     { return Format(s) }
func (s *Subquery) WithChildren(children []Node) (Node, error) {
	if len(children) != 0 {
		return nil, childCountError("Subquery", 0, len(children))
	}
	return s, nil
}

// InjectParameters marks a point where named runtime values must be bound
// before the inner query executes.
type InjectParameters struct {
	params []*Parameter
	values []Node
	query  Node
}

// NewInjectParameters creates an injection marker. params and values must be
// non-empty, of equal length, with unique parameter names, and each value
// must be assignable to its parameter's type.
func NewInjectParameters(params []*Parameter, values []Node, query Node) (*InjectParameters, error) {
	const node = "InjectParameters"
	if len(params) == 0 {
		return nil, NewStructuralError(ErrCodeInjectionMismatch, node, "at least one parameter is required")
	}
	if len(params) != len(values) {
		return nil, NewStructuralError(ErrCodeInjectionMismatch, node,
			"%d parameters but %d values", len(params), len(values))
	}
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if seen[p.name] {
			return nil, NewStructuralError(ErrCodeDuplicateParameter, node, "parameter %q declared twice", p.name)
		}
		seen[p.name] = true
		if !AssignableTo(values[i].Type(), p.typ) {
			return nil, NewStructuralError(ErrCodeTypeMismatch, node,
				"value %d of type %s is not assignable to parameter %q of type %s", i, values[i].Type(), p.name, p.typ)
		}
	}
	if query == nil {
		return nil, NewStructuralError(ErrCodeInjectionMismatch, node, "inner query is required")
	}
	return &InjectParameters{
		params: slices.Clone(params),
		values: slices.Clone(values),
		query:  query,
	}, nil
}

func (m *InjectParameters) Type() *Type          { return m.query.Type() }
func (m *InjectParameters) Params() []*Parameter { return slices.Clone(m.params) }
func (m *InjectParameters) Values() []Node       { return slices.Clone(m.values) }
func (m *InjectParameters) Query() Node          { return m.query }
func (m *InjectParameters) String() string       { return Format(m) }

// Children returns the parameter values followed by the inner query.
func (m *InjectParameters) Children() []Node {
	out := make([]Node, 0, len(m.values)+1)
	out = append(out, m.values...)
	return append(out, m.query)
}

func (m *InjectParameters) WithChildren(children []Node) (Node, error) {
	if len(children) != len(m.values)+1 {
		return nil, childCountError("InjectParameters", len(m.values)+1, len(children))
	}
	if sameNodes(children, m.Children()) {
		return m, nil
	}
	return NewInjectParameters(m.params, children[:len(m.values)], children[len(m.values)])
}

// KindOf names the node kind for logs and canonical encoding.
func KindOf(n Node) string {
	switch n.(type) {
	case *Operator:
		return "operator"
	case *Constant:
		return "constant"
	case *Parameter:
		return "parameter"
	case *Lambda:
		return "lambda"
	case *Member:
		return "member"
	case *Subquery:
		return "subquery"
	case *InjectParameters:
		return "inject_parameters"
	default:
		return fmt.Sprintf("%T", n)
	}
}
