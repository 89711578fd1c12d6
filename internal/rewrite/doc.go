// Package rewrite implements the tree rewriter and the subquery expander.
//
// The rewriter is a depth-first transform with one visit method per node
// kind. The default for every kind is "rebuild from rewritten children, or
// return the same instance when no child changed". Callers and the rewriter
// itself detect change with ==, never with deep equality.
//
// QueryRewriter adds the pipeline's special cases:
//   - deferred parameters become GetParameterValue[T](ctx, name) calls
//   - marker operators (InjectParameters, ToQueryable) are re-instantiated
//     when rewriting changed the type of their watched operand
//   - subquery markers are replaced by their independently rewritten body
//   - injection markers rewrite their values, then rewrite the inner query
//     with the declared parameters lifted into context lookups
//
// Errors are never swallowed: the first failure aborts the whole rewrite and
// is returned unchanged.
//
// Rewriting is synchronous and holds per-call state (the injection scope),
// so a QueryRewriter must not be shared between goroutines. Create one per
// call; they are cheap.
package rewrite
