// Package harness runs compiled queries end to end and separates triaged
// failures from regressions.
//
// # Classification
//
// Execute compiles a (possibly mutated) query, evaluates it and drains the
// result. An error raised while draining is classified, in order:
//
//  1. Noise: infrastructure messages unrelated to the query (lock
//     contention and the like). Always swallowed.
//  2. Known failure: the registry holds an accepted substring for the test
//     id and the message contains it. Swallowed.
//  3. Unclassified: everything else. Logged with the seed and returned as an
//     *UnclassifiedError so the failing mutation can be replayed.
//
// Compile errors (rewriting, binding, mutation) are never classified. They
// propagate to the caller untouched.
//
// # Test Identifiers
//
// The test id is an explicit argument. TestID derives one from a Go subtest
// name for callers inside `go test`.
//
// # Configuration
//
// Noise patterns, known failures and mutator denylist entries can be loaded
// from YAML:
//
//	noise:
//	  - "database is locked"
//	known_failures:
//	  Except_simple:
//	    - "cannot be used for"
//	denylist:
//	  Order: [Freight]
//
// Unknown keys are rejected so typos fail loudly.
//
// # Fuzzing
//
// Fuzzer expands a base query once per seed and executes each mutation
// with bounded parallelism. Replay re-runs a single seed; the same seed and
// base query always produce the same mutation.
package harness
