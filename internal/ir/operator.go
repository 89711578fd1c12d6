package ir

import "slices"

// OperatorDef is the static signature of a query operator: its identity
// (name + arity), the number of generic type parameters, and the functions
// that type-check an instantiation and infer type arguments.
//
// Definitions are created once when the catalogue initialises and are never
// mutated afterwards.
type OperatorDef struct {
	// Name identifies the operator, e.g. "Where".
	Name string

	// TypeParams is the number of generic type arguments.
	TypeParams int

	// Arity is the number of operands. When Variadic is set it is the minimum.
	Arity int

	// Variadic allows more than Arity operands.
	Variadic bool

	// Resolve checks operand types against the type arguments and returns
	// the result type.
	Resolve func(typeArgs []*Type, operands []Node) (*Type, error)

	// Infer derives type arguments from operand types.
	Infer func(operands []Node) ([]*Type, error)
}

// Operator is an instantiated query operator call.
type Operator struct {
	def      *OperatorDef
	typeArgs []*Type
	operands []Node
	typ      *Type
}

// NewOperator instantiates def with explicit type arguments.
// Arity and type-argument count violations are structural errors.
func NewOperator(def *OperatorDef, typeArgs []*Type, operands ...Node) (*Operator, error) {
	if len(typeArgs) != def.TypeParams {
		return nil, NewStructuralError(ErrCodeTypeArgumentMismatch, def.Name,
			"expected %d type arguments, got %d", def.TypeParams, len(typeArgs))
	}
	if len(operands) < def.Arity || (!def.Variadic && len(operands) != def.Arity) {
		return nil, NewStructuralError(ErrCodeArityMismatch, def.Name,
			"expected %d operands, got %d", def.Arity, len(operands))
	}
	for i, op := range operands {
		if op == nil {
			return nil, NewStructuralError(ErrCodeArityMismatch, def.Name, "operand %d is nil", i)
		}
	}
	typ, err := def.Resolve(typeArgs, operands)
	if err != nil {
		return nil, err
	}
	return &Operator{
		def:      def,
		typeArgs: slices.Clone(typeArgs),
		operands: slices.Clone(operands),
		typ:      typ,
	}, nil
}

// InferOperator instantiates def with type arguments inferred from operands.
func InferOperator(def *OperatorDef, operands ...Node) (*Operator, error) {
	if len(operands) < def.Arity || (!def.Variadic && len(operands) != def.Arity) {
		return nil, NewStructuralError(ErrCodeArityMismatch, def.Name,
			"expected %d operands, got %d", def.Arity, len(operands))
	}
	var typeArgs []*Type
	if def.Infer != nil {
		var err error
		typeArgs, err = def.Infer(operands)
		if err != nil {
			return nil, err
		}
	}
	return NewOperator(def, typeArgs, operands...)
}

func (o *Operator) Type() *Type        { return o.typ }
func (o *Operator) Def() *OperatorDef  { return o.def }
func (o *Operator) Name() string       { return o.def.Name }
func (o *Operator) TypeArgs() []*Type  { return slices.Clone(o.typeArgs) }
func (o *Operator) Operands() []Node   { return slices.Clone(o.operands) }
func (o *Operator) Operand(i int) Node { return o.operands[i] }
func (o *Operator) NumOperands() int   { return len(o.operands) }
func (o *Operator) Children() []Node   { return slices.Clone(o.operands) }
func (o *Operator) String() string     { return Format(o) }

// WithChildren rebuilds the call over new operands, keeping the type
// arguments. An operand whose type no longer fits is a structural error.
func (o *Operator) WithChildren(children []Node) (Node, error) {
	if sameNodes(children, o.operands) {
		return o, nil
	}
	return NewOperator(o.def, o.typeArgs, children...)
}

// Reinstantiate rebuilds the call over new operands with type arguments
// re-inferred from them. Used when rewriting changed an operand's type.
func (o *Operator) Reinstantiate(operands []Node) (*Operator, error) {
	return InferOperator(o.def, operands...)
}
