package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/testutil"
)

func TestAssertGolden_Session(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Session", "unknown data set")
	exec := NewExecutor(exceptSource(), WithRegistry(reg))
	ctx := context.Background()

	var results []Result
	res, err := exec.Execute(ctx, "Session", 1, must(queryir.Take(customers(), 2))(t))
	require.NoError(t, err)
	results = append(results, res)

	res, err = exec.Execute(ctx, "Session", 2, queryir.Source("Suppliers", testutil.Customer))
	require.NoError(t, err)
	results = append(results, res)

	res, err = exec.Execute(ctx, "Session", 3, queryir.Source("Locked", testutil.Customer))
	require.NoError(t, err)
	results = append(results, res)

	require.NoError(t, AssertGolden(t, "session", "Session", results))
}
