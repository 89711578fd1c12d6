// Package queryir is the closed operator catalogue for the query IR.
//
// Every operator a query tree may contain is declared here once, as a static
// ir.OperatorDef, and registered by name when the package initialises. The
// registry is never mutated afterwards: there is no reinitialisation path and
// no runtime registration.
//
// ARCHITECTURE:
//
//	[query builder] → [queryir builders] → ir tree → [rewrite] → [binder] → plan
//
// Builders (Where, Select, OrderBy, ...) perform generic instantiation by
// explicit substitution: each OperatorDef.Infer derives the type arguments
// from operand types, and Resolve checks the operands against them. There is
// no signature search by name or parameter shape.
//
// OPERATOR FAMILIES:
//
// Sequence operators, evaluated lazily by the engine:
//   - Where, Select, Take, Join over Queryable[T]
//   - OrderBy, OrderByDescending produce OrderedQueryable[T]
//   - ThenBy, ThenByDescending require an OrderedQueryable[T] source
//   - ToQueryable, AsEnumerable switch between queryable and in-memory
//
// Runtime primitives, emitted by the rewriter and binder:
//   - GetParameterValue[T](ctx, name) reads the execution context
//   - SetParameter(ctx, name, value) installs a value by name
//   - InjectParameters[T](ctx, plan, names, values) runs an install-then-evaluate plan
//   - Block, NewArray, Index support the plan's body
//
// Scalar helpers used inside lambdas:
//   - Equal
//
// CRITICAL PATTERNS:
//
// Marker operators: InjectParameters watches operand 1 and ToQueryable
// watches operand 0. When a rewrite changes the watched operand's type the
// call is re-instantiated (see WatchedOperand).
//
// QueryContextParameter is the single execution-context parameter shared by
// every rewritten tree, including nested subqueries.
package queryir
