// Package engine implements the execution runtime that compiled plans run
// against.
//
// The rewriter and binder produce plans that only make sense together with
// a runtime: a per-execution parameter table (QueryContext), a source of
// rows (DataSource) and an evaluator (Interpreter). Production systems plug
// in their own database backends; this package is the reference runtime the
// harness drains plans through.
//
// ARCHITECTURE:
//
// Tree-Walking Evaluation:
// Interpreter.Evaluate walks the plan once and returns either a literal or a
// lazy Sequence. Data sets are read when a Sequence is iterated, so most
// data-dependent failures surface only while draining. Operator semantics
// live in a static table keyed by catalogue name.
//
// Evaluation Flow:
// 1. Evaluate builds closures for lambdas and lazy sequences for operators
// 2. InjectParameters calls its plan closure, which installs each name/value
//    pair into the QueryContext in declaration order
// 3. The inner query's GetParameterValue lookups read the context
// 4. Drain iterates the result and reports the first error
//
// CRITICAL PATTERNS:
//
// Binding Errors:
// A lookup of a name never set, or of a value the requested type cannot
// hold, is a RuntimeError with a BINDING_ code. These are the errors a
// broken rewrite produces, so the harness never files them as noise.
//
// Row Quota:
// Every evaluation counts the rows it reads and stops past the quota
// (WithMaxRows). Mutated plans may join large sets; the quota guarantees
// termination in bounded time.
//
// Determinism:
// Sorting is stable, joins preserve outer then inner order, and no operator
// depends on map iteration order.
package engine
