package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/testutil"
)

// scriptedSource serves the test fixtures and fails reads of the sets in
// errs with the given messages.
type scriptedSource struct {
	*engine.MemorySource
	errs map[string]string
}

func newScriptedSource(errs map[string]string) *scriptedSource {
	src := engine.NewMemorySource()
	src.AddObjects("Customers", testutil.CustomerRows()...)
	src.AddObjects("Orders", testutil.OrderRows()...)
	src.AddObjects("People", testutil.PersonRows()...)
	return &scriptedSource{MemorySource: src, errs: errs}
}

func (s *scriptedSource) Rows(ctx context.Context, set string, elem *ir.Type) ([]ir.IRValue, error) {
	if msg, ok := s.errs[set]; ok {
		return nil, errors.New(msg)
	}
	return s.MemorySource.Rows(ctx, set, elem)
}

func must[T any](v T, err error) func(t *testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

func customers() *ir.Constant {
	return queryir.Source("Customers", testutil.Customer)
}

// recordingLedger keeps runs in memory.
type recordingLedger struct {
	runs []ir.RunRecord
}

func (l *recordingLedger) RecordRun(_ context.Context, run ir.RunRecord) (int64, error) {
	l.runs = append(l.runs, run)
	return int64(len(l.runs)), nil
}
