package engine

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/roach88/querypipe/internal/ir"
)

// Sequence is the runtime form of a queryable or enumerable result. Rows are
// produced lazily; an error ends the sequence.
type Sequence = iter.Seq2[ir.IRValue, error]

// closure is the runtime form of a lambda.
type closure func(args []any) (any, error)

// Interpreter is the reference evaluator for compiled plans.
//
// Evaluation is tree-walking and lazy for sequences: data sets are read when
// the sequence over them is first iterated, not when the plan is evaluated.
// Each Evaluate call gets its own row quota and environment, so one
// Interpreter may serve concurrent executions.
type Interpreter struct {
	source  DataSource
	logger  *slog.Logger
	maxRows int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger for evaluation diagnostics.
//
// Default: a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// WithMaxRows sets the per-evaluation row quota.
//
// Default: 100000 rows (DefaultMaxRows). Zero disables the quota.
func WithMaxRows(maxRows int) Option {
	return func(in *Interpreter) {
		in.maxRows = maxRows
	}
}

// NewInterpreter creates an interpreter reading data sets from source.
func NewInterpreter(source DataSource, opts ...Option) *Interpreter {
	in := &Interpreter{
		source:  source,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Evaluate evaluates n against qc.
//
// The result is a Sequence for queryable and enumerable plans and an
// ir.IRValue otherwise. Sequence results must be drained (see Drain) for
// data-dependent errors to surface.
func (in *Interpreter) Evaluate(ctx context.Context, qc *QueryContext, n ir.Node) (any, error) {
	ev := &evaluation{
		ctx:    ctx,
		qc:     qc,
		source: in.source,
		quota:  NewRowQuota(in.maxRows),
		logger: in.logger,
	}
	in.logger.Debug("evaluating plan", "type", n.Type().String())
	return ev.eval(n, nil)
}

// Drain consumes a result fully and returns its rows. A scalar result is
// returned as a single row.
func Drain(ctx context.Context, result any) ([]ir.IRValue, error) {
	var seq Sequence
	switch r := result.(type) {
	case Sequence:
		seq = r
	case *ordered:
		seq = r.all()
	default:
		v, err := asValue(result)
		if err != nil {
			return nil, err
		}
		return []ir.IRValue{v}, nil
	}

	var rows []ir.IRValue
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// env is a linked scope of lambda and marker bindings.
type env struct {
	name   string
	value  any
	parent *env
}

func (e *env) lookup(name string) (any, bool) {
	for s := e; s != nil; s = s.parent {
		if s.name == name {
			return s.value, true
		}
	}
	return nil, false
}

func (e *env) bind(params []*ir.Parameter, args []any) *env {
	s := e
	for i, p := range params {
		s = &env{name: p.Name(), value: args[i], parent: s}
	}
	return s
}

// evaluation holds the state of one Evaluate call.
type evaluation struct {
	ctx    context.Context
	qc     *QueryContext
	source DataSource
	quota  *RowQuota
	logger *slog.Logger
}

func (ev *evaluation) eval(n ir.Node, e *env) (any, error) {
	switch node := n.(type) {
	case *ir.Constant:
		return ev.constant(node)
	case *ir.Parameter:
		return ev.parameter(node, e)
	case *ir.Lambda:
		return ev.lambda(node, e), nil
	case *ir.Member:
		return ev.member(node, e)
	case *ir.Subquery:
		return ev.eval(node.Model().Body, e)
	case *ir.InjectParameters:
		return ev.inject(node, e)
	case *ir.Operator:
		impl, ok := operators[node.Name()]
		if !ok {
			return nil, &RuntimeError{
				Code:     ErrCodeUnsupportedOperator,
				Message:  "no evaluation semantics",
				Operator: node.Name(),
			}
		}
		return impl(ev, node, e)
	default:
		return nil, &RuntimeError{
			Code:    ErrCodeUnsupportedOperator,
			Message: "cannot evaluate node kind " + ir.KindOf(n),
		}
	}
}

func (ev *evaluation) constant(c *ir.Constant) (any, error) {
	if ir.IsSequence(c.Type()) {
		return ev.rows(ir.ElementType(c.Type()), c.Value())
	}
	return c.Value(), nil
}

// rows turns a sequence-typed value into a Sequence: a string names a data
// set, an array holds the rows inline.
func (ev *evaluation) rows(elem *ir.Type, v ir.IRValue) (Sequence, error) {
	switch val := v.(type) {
	case ir.IRString:
		set := string(val)
		return func(yield func(ir.IRValue, error) bool) {
			rows, err := ev.source.Rows(ev.ctx, set, elem)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range rows {
				if err := ev.quota.Check(set); err != nil {
					yield(nil, err)
					return
				}
				if err := ev.ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(row, nil) {
					return
				}
			}
		}, nil
	case ir.IRArray:
		return fromSlice(val), nil
	default:
		return nil, evaluationError("", "value %v is not a sequence", ir.GoValue(v))
	}
}

func fromSlice(rows []ir.IRValue) Sequence {
	return func(yield func(ir.IRValue, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (ev *evaluation) parameter(p *ir.Parameter, e *env) (any, error) {
	if v, ok := e.lookup(p.Name()); ok {
		return v, nil
	}
	if ir.SameType(p.Type(), ir.QueryContext) {
		return ev.qc, nil
	}
	return nil, &RuntimeError{
		Code:    ErrCodeUnboundParameter,
		Message: "parameter has no value at run time",
		Details: map[string]string{"name": p.Name()},
	}
}

func (ev *evaluation) lambda(l *ir.Lambda, e *env) closure {
	params, body := l.Params(), l.Body()
	return func(args []any) (any, error) {
		if len(args) != len(params) {
			return nil, evaluationError("", "lambda takes %d arguments, got %d", len(params), len(args))
		}
		return ev.eval(body, e.bind(params, args))
	}
}

func (ev *evaluation) member(m *ir.Member, e *env) (any, error) {
	inst, err := ev.eval(m.Instance(), e)
	if err != nil {
		return nil, err
	}
	v, err := asValue(inst)
	if err != nil {
		return nil, err
	}

	field, instType := m.Field(), m.Instance().Type()
	if instType.Kind() == ir.KindOptional {
		_, null := v.(ir.IRNull)
		switch field {
		case "HasValue":
			return ir.IRBool(!null), nil
		case "Value":
			if null {
				return nil, evaluationError("", "optional %s has no value", instType)
			}
			return v, nil
		}
	}

	switch val := v.(type) {
	case ir.IRObject:
		if fv, ok := val[field]; ok {
			return fv, nil
		}
		return ir.IRNull{}, nil
	case ir.IRString:
		if field == "Length" {
			return ir.IRInt(len([]rune(string(val)))), nil
		}
	case ir.IRArray:
		switch field {
		case "Length", "Count", "Capacity":
			return ir.IRInt(len(val)), nil
		case "Rank":
			return ir.IRInt(1), nil
		case "IsFixedSize":
			return ir.IRBool(instType.Kind() == ir.KindArray), nil
		case "IsReadOnly", "IsSynchronized":
			return ir.IRBool(false), nil
		}
	case ir.IRNull:
		return nil, evaluationError("", "member %s accessed on null %s", field, instType)
	}
	return nil, evaluationError("", "type %s has no runtime member %s", instType, field)
}

// inject evaluates an unreduced injection marker directly: values are
// installed in the context and bound in scope, then the query runs.
func (ev *evaluation) inject(m *ir.InjectParameters, e *env) (any, error) {
	params := m.Params()
	args := make([]any, len(params))
	for i, vn := range m.Values() {
		raw, err := ev.eval(vn, e)
		if err != nil {
			return nil, err
		}
		v, err := asValue(raw)
		if err != nil {
			return nil, err
		}
		ev.qc.SetParameter(params[i].Name(), v)
		args[i] = v
	}
	return ev.eval(m.Query(), e.bind(params, args))
}

func (ev *evaluation) operand(op *ir.Operator, i int, e *env) (any, error) {
	return ev.eval(op.Operand(i), e)
}

func (ev *evaluation) sequenceOperand(op *ir.Operator, i int, e *env) (Sequence, error) {
	v, err := ev.operand(op, i, e)
	if err != nil {
		return nil, err
	}
	return asSequence(op.Name(), v)
}

func (ev *evaluation) closureOperand(op *ir.Operator, i int, e *env) (closure, error) {
	v, err := ev.operand(op, i, e)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(closure)
	if !ok {
		return nil, evaluationError(op.Name(), "operand %d is not a function", i)
	}
	return fn, nil
}

func (ev *evaluation) valueOperand(op *ir.Operator, i int, e *env) (ir.IRValue, error) {
	v, err := ev.operand(op, i, e)
	if err != nil {
		return nil, err
	}
	return asValue(v)
}

func (ev *evaluation) contextOperand(op *ir.Operator, i int, e *env) (*QueryContext, error) {
	v, err := ev.operand(op, i, e)
	if err != nil {
		return nil, err
	}
	qc, ok := v.(*QueryContext)
	if !ok {
		return nil, evaluationError(op.Name(), "operand %d is not a query context", i)
	}
	return qc, nil
}

func asSequence(op string, v any) (Sequence, error) {
	switch val := v.(type) {
	case Sequence:
		return val, nil
	case *ordered:
		return val.all(), nil
	case ir.IRArray:
		return fromSlice(val), nil
	default:
		return nil, evaluationError(op, "value of type %T is not a sequence", v)
	}
}

// asValue materialises a runtime value as a literal. Sequences are drained
// into arrays.
func asValue(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case ir.IRValue:
		return val, nil
	case Sequence, *ordered:
		seq, _ := asSequence("", val)
		var arr ir.IRArray
		for row, err := range seq {
			if err != nil {
				return nil, err
			}
			arr = append(arr, row)
		}
		if arr == nil {
			arr = ir.IRArray{}
		}
		return arr, nil
	default:
		return nil, evaluationError("", "value of type %T has no literal form", v)
	}
}

func callValue(fn closure, args ...any) (ir.IRValue, error) {
	res, err := fn(args)
	if err != nil {
		return nil, err
	}
	return asValue(res)
}
