// Package querypipe rewrites, compiles and fuzzes LINQ-style query trees.
//
// The package-level functions share one process-wide known-failure registry
// and one data source. Register entries and set the source during
// initialisation, before the first Execute; both are safe for concurrent use
// afterwards.
//
//	querypipe.Register("Except_simple", "Unable to translate set operation")
//	plan, err := querypipe.Compile(query)
//	res, err := querypipe.Execute(ctx, "Except_simple", query)
package querypipe

import (
	"context"
	"sync"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/harness"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/mutate"
	"github.com/roach88/querypipe/internal/rewrite"
)

type (
	// Node is a query tree node.
	Node = ir.Node

	// DataSource serves the rows of named data sets to evaluation.
	DataSource = engine.DataSource

	// Result is the classified outcome of one execution.
	Result = harness.Result
)

var (
	registry  = harness.NewRegistry()
	generator = mutate.NewGenerator()

	sourceMu sync.RWMutex
	source   DataSource = engine.NewMemorySource()
)

// Rewrite lifts deferred parameters into context lookups and expands
// subqueries. The result still carries injection markers.
func Rewrite(n Node) (Node, error) {
	return rewrite.Rewrite(n)
}

// Compile rewrites n and reduces every injection marker, producing a plan
// ready for evaluation.
func Compile(n Node) (Node, error) {
	return harness.Compile(n)
}

// Expand applies the mutation seed selects to n. The same seed and tree
// always produce a structurally equal result.
func Expand(seed int64, n Node) (Node, error) {
	return generator.Expand(seed, n)
}

// Register accepts failures of testID whose message contains substring.
func Register(testID, substring string) {
	registry.Register(testID, substring)
}

// SetSource replaces the data source Execute reads from.
func SetSource(src DataSource) {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	source = src
}

// Execute compiles and drains query, classifying any failure against the
// registry. Noise and registered failures are swallowed; an unregistered
// failure is returned as *harness.UnclassifiedError.
func Execute(ctx context.Context, testID string, query Node) (Result, error) {
	return ExecuteSeed(ctx, testID, 0, query)
}

// ExecuteSeed is Execute for a query produced by Expand, recording seed in
// the result and in failure logs.
func ExecuteSeed(ctx context.Context, testID string, seed int64, query Node) (Result, error) {
	sourceMu.RLock()
	src := source
	sourceMu.RUnlock()

	exec := harness.NewExecutor(src, harness.WithRegistry(registry))
	return exec.Execute(ctx, testID, seed, query)
}
