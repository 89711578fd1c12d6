package rewrite

import (
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
)

// Option configures a QueryRewriter.
type Option func(*QueryRewriter)

// WithLogger sets the logger for rewrite decisions (debug level).
//
// Default: a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *QueryRewriter) {
		r.logger = logger
	}
}

// WithContextParameter sets the execution context parameter that lifted
// lookups read from.
//
// Default: queryir.QueryContextParameter.
func WithContextParameter(ctx *ir.Parameter) Option {
	return func(r *QueryRewriter) {
		r.ctx = ctx
	}
}

// WithDeferredPrefixes replaces the recognised deferred parameter prefixes.
//
// Default: ir.DefaultDeferredPrefixes ("__" and the legacy "_outer_").
func WithDeferredPrefixes(prefixes ...string) Option {
	return func(r *QueryRewriter) {
		r.prefixes = slices.Clone(prefixes)
	}
}

// QueryRewriter is the pipeline transform. It embeds Base and overrides the
// node kinds that carry pipeline semantics.
type QueryRewriter struct {
	Base

	ctx      *ir.Parameter
	prefixes []string
	logger   *slog.Logger
	expander *Expander

	// mapping holds the declared parameters of the injection markers
	// enclosing the node being rewritten, keyed by name, with their
	// rewritten values. Scoped: restored when a marker's inner query is done.
	mapping map[string]ir.Node
}

// NewQueryRewriter creates a rewriter with the given options.
func NewQueryRewriter(opts ...Option) *QueryRewriter {
	r := &QueryRewriter{
		ctx:      queryir.QueryContextParameter,
		prefixes: slices.Clone(ir.DefaultDeferredPrefixes),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Base.Outer = r
	r.expander = &Expander{
		ctx:      r.ctx,
		prefixes: r.prefixes,
		logger:   r.logger,
	}
	return r
}

// Rewrite runs the pipeline transform over n. It returns n itself when no
// node matched a special case.
func (r *QueryRewriter) Rewrite(n ir.Node) (ir.Node, error) {
	return Visit(r.outer(), n)
}

// Rewrite runs a default QueryRewriter over n.
func Rewrite(n ir.Node, opts ...Option) (ir.Node, error) {
	return NewQueryRewriter(opts...).Rewrite(n)
}

func (r *QueryRewriter) lift(p *ir.Parameter, reason string) (ir.Node, error) {
	get, err := queryir.GetParameterValue(p.Type(), r.ctx, p.Name())
	if err != nil {
		return nil, err
	}
	r.logger.Debug("lifted parameter into context lookup",
		"parameter", p.Name(),
		"type", p.Type().String(),
		"reason", reason,
	)
	return get, nil
}

// VisitParameter lifts deferred parameters, and parameters declared by an
// enclosing injection marker, into context lookups.
func (r *QueryRewriter) VisitParameter(p *ir.Parameter) (ir.Node, error) {
	if ir.HasPrefix(p.Name(), r.prefixes) {
		return r.lift(p, "deferred")
	}
	if _, ok := r.mapping[p.Name()]; ok {
		return r.lift(p, "injected")
	}
	return p, nil
}

// VisitLambda hides injected names shadowed by the lambda's own parameters
// while its body is rewritten.
func (r *QueryRewriter) VisitLambda(l *ir.Lambda) (ir.Node, error) {
	if len(r.mapping) == 0 {
		return r.VisitChildren(l)
	}
	saved := r.mapping
	var visible map[string]ir.Node
	for _, p := range l.Params() {
		if _, shadowed := saved[p.Name()]; !shadowed {
			continue
		}
		if visible == nil {
			visible = maps.Clone(saved)
		}
		delete(visible, p.Name())
	}
	if visible == nil {
		return r.VisitChildren(l)
	}
	r.mapping = visible
	defer func() { r.mapping = saved }()
	return r.VisitChildren(l)
}

// VisitOperator re-instantiates marker operators whose watched operand
// changed type. Every other operator takes the default.
func (r *QueryRewriter) VisitOperator(op *ir.Operator) (ir.Node, error) {
	watched, ok := queryir.WatchedOperand(op.Name())
	if !ok {
		return r.VisitChildren(op)
	}

	operands := op.Operands()
	changed := false
	for i, o := range operands {
		no, err := Visit(r.outer(), o)
		if err != nil {
			return nil, err
		}
		if no != o {
			operands[i] = no
			changed = true
		}
	}
	if !changed {
		return op, nil
	}

	before, after := op.Operand(watched).Type(), operands[watched].Type()
	if !ir.SameType(before, after) {
		r.logger.Debug("re-instantiated marker operator",
			"operator", op.Name(),
			"from", before.String(),
			"to", after.String(),
		)
		return op.Reinstantiate(operands)
	}
	return op.WithChildren(operands)
}

// VisitSubquery splices in the independently rewritten nested query.
func (r *QueryRewriter) VisitSubquery(s *ir.Subquery) (ir.Node, error) {
	return r.expander.Expand(s)
}

// VisitInjectParameters rewrites the marker's values, then its inner query
// with the declared parameters in scope. The marker is rebuilt only if a
// value or the query changed.
func (r *QueryRewriter) VisitInjectParameters(m *ir.InjectParameters) (ir.Node, error) {
	values := m.Values()
	modified := false
	for i, v := range values {
		nv, err := Visit(r.outer(), v)
		if err != nil {
			return nil, err
		}
		if nv != v {
			values[i] = nv
			modified = true
		}
	}

	saved := r.mapping
	r.mapping = make(map[string]ir.Node, len(saved)+len(values))
	maps.Copy(r.mapping, saved)
	for i, p := range m.Params() {
		r.mapping[p.Name()] = values[i]
	}
	query, err := Visit(r.outer(), m.Query())
	r.mapping = saved
	if err != nil {
		return nil, err
	}

	if !modified && query == m.Query() {
		return m, nil
	}
	return ir.NewInjectParameters(m.Params(), values, query)
}
