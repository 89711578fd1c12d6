package harness

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/querypipe/internal/binder"
	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/rewrite"
)

// Ledger records classified executions. Implemented by store.Store.
type Ledger interface {
	RecordRun(ctx context.Context, run ir.RunRecord) (int64, error)
}

// Executor compiles, evaluates and classifies queries.
//
// An Executor holds no per-execution state: each Execute gets a fresh query
// context, so one Executor may serve a whole fuzz session concurrently.
type Executor struct {
	source   engine.DataSource
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
	ledger   Ledger
	runID    string
	maxRows  int
}

// Option configures an Executor.
type Option func(*Executor)

// WithRegistry sets the known-failure registry.
//
// Default: NewRegistry() (noise only).
func WithRegistry(r *Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithLogger sets the logger. Unclassified failures are logged at error
// level with their seed.
//
// Default: a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics sets the outcome counters.
//
// Default: unregistered counters.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithLedger records every execution under a run id taken from gen.
//
// Default: no ledger.
func WithLedger(l Ledger, gen RunIDGenerator) Option {
	return func(e *Executor) {
		e.ledger = l
		e.runID = gen.Generate()
	}
}

// WithMaxRows sets the per-execution row quota.
//
// Default: engine.DefaultMaxRows.
func WithMaxRows(maxRows int) Option {
	return func(e *Executor) {
		e.maxRows = maxRows
	}
}

// NewExecutor creates an executor reading data sets from source.
func NewExecutor(source engine.DataSource, opts ...Option) *Executor {
	e := &Executor{
		source:   source,
		registry: NewRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  NewMetrics(nil),
		maxRows:  engine.DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the executor's registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// RunID returns the ledger run id, or "" without a ledger.
func (e *Executor) RunID() string {
	return e.runID
}

// Compile turns a query into an executable plan: rewriting lifts deferred
// and injected parameters and expands subqueries, then every injection
// marker is reduced to its binding form.
func Compile(query ir.Node, opts ...rewrite.Option) (ir.Node, error) {
	rewritten, err := rewrite.Rewrite(query, opts...)
	if err != nil {
		return nil, err
	}
	return binder.ReduceAll(rewritten)
}

// Execute compiles query, evaluates it and drains the result.
//
// Execution errors are classified against the registry (see package docs).
// Noise and known failures are swallowed: the returned error is nil and
// Result.Err holds what was swallowed. Unclassified failures are returned as
// *UnclassifiedError. Compile errors and cancellation of ctx are returned
// untouched.
func (e *Executor) Execute(ctx context.Context, testID string, seed int64, query ir.Node) (Result, error) {
	res := Result{TestID: testID, Seed: seed, Query: ir.Format(query)}
	fp, err := ir.Fingerprint(query)
	if err != nil {
		res.Outcome, res.Err = OutcomeCompileError, err
		return e.finish(ctx, res, err)
	}
	res.Fingerprint = fp

	plan, err := Compile(query, rewrite.WithLogger(e.logger))
	if err != nil {
		res.Outcome, res.Err = OutcomeCompileError, err
		e.logger.Warn("compile failed", "test_id", testID, "seed", seed, "error", err)
		return e.finish(ctx, res, err)
	}

	rows, err := e.evaluate(ctx, plan)
	if err == nil {
		res.Outcome, res.Rows = OutcomePassed, rows
		return e.finish(ctx, res, nil)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	res.Err = err
	res.Outcome = e.registry.Classify(testID, err.Error())
	switch res.Outcome {
	case OutcomeNoise:
		e.logger.Debug("swallowed noise", "test_id", testID, "seed", seed, "error", err)
		return e.finish(ctx, res, nil)
	case OutcomeKnownFailure:
		e.logger.Info("swallowed known failure", "test_id", testID, "seed", seed, "error", err)
		return e.finish(ctx, res, nil)
	default:
		e.logger.Error("unclassified failure",
			"test_id", testID,
			"seed", seed,
			"fingerprint", fp,
			"error", err,
		)
		return e.finish(ctx, res, &UnclassifiedError{TestID: testID, Seed: seed, Err: err})
	}
}

func (e *Executor) evaluate(ctx context.Context, plan ir.Node) (int, error) {
	in := engine.NewInterpreter(e.source,
		engine.WithLogger(e.logger),
		engine.WithMaxRows(e.maxRows),
	)
	out, err := in.Evaluate(ctx, engine.NewQueryContext(), plan)
	if err != nil {
		return 0, err
	}
	rows, err := engine.Drain(ctx, out)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// finish counts and records res, then returns it with err. A ledger write
// failure is logged, never reported in place of the execution's outcome.
func (e *Executor) finish(ctx context.Context, res Result, err error) (Result, error) {
	e.metrics.observe(res)
	if e.ledger == nil {
		return res, err
	}

	run := ir.RunRecord{
		RunID:       e.runID,
		TestID:      res.TestID,
		Seed:        res.Seed,
		Query:       res.Query,
		Fingerprint: res.Fingerprint,
		Outcome:     string(res.Outcome),
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	key, keyErr := ir.RunKey(res.TestID, res.Seed, res.Fingerprint)
	if keyErr == nil {
		run.RunKey = key
		_, keyErr = e.ledger.RecordRun(ctx, run)
	}
	if keyErr != nil {
		e.logger.Warn("failed to record run", "test_id", res.TestID, "seed", res.Seed, "error", keyErr)
	}
	return res, err
}
