// Package ir provides the query intermediate representation used by the
// translation pipeline.
//
// A query is an immutable tree of nodes. Every node reports its static type
// and exposes its children, so a generic transform can rebuild any node kind
// without knowing its semantics. Nodes are pointers with unexported fields:
// a rewrite that makes no change must hand back the same pointer, and callers
// detect change with ==, never with deep equality.
//
// This package contains no pipeline logic. The operator catalogue lives in
// queryir, the rewriting passes in rewrite and binder. ir imports nothing
// internal.
//
// Key design constraints:
//   - NO float values anywhere - constants use int64 for numbers
//   - A node's type is a pure function of its children's types
//   - Structural invariants fail with *StructuralError at construction time
package ir
