package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querypipe/internal/ir"
)

func TestRecordRun_AssignsLedgerOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.RecordRun(ctx, createTestRun("run-1", "Except_simple", 1, "passed"))
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, createTestRun("run-1", "Except_simple", 2, "known_failure"))
	require.NoError(t, err)

	assert.Positive(t, first)
	assert.Greater(t, second, first)
}

func TestRecordRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1", "Where_simple", 7, "passed")

	id, err := s.RecordRun(ctx, run)
	require.NoError(t, err)
	require.Positive(t, id)

	again, err := s.RecordRun(ctx, run)
	require.NoError(t, err)
	assert.Zero(t, again, "duplicate run is ignored")

	runs, err := s.Runs(ctx, "Where_simple")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun_SameSeedNewSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.RecordRun(ctx, createTestRun("run-1", "Where_simple", 7, "unclassified"))
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, createTestRun("run-2", "Where_simple", 7, "passed"))
	require.NoError(t, err)

	runs, err := s.Runs(ctx, "Where_simple")
	require.NoError(t, err)
	assert.Len(t, runs, 2, "replays in a new session are recorded")
}

func TestLoadFixture_RoundTripsRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []ir.IRValue{
		ir.IRObject{"Name": ir.IRString("Alfreds"), "Age": ir.IRInt(41)},
		ir.IRObject{"Name": ir.IRString("Ana"), "Age": ir.IRInt(9007199254740993)},
		ir.IRObject{"Name": ir.IRString("Berglunds"), "Age": ir.IRNull{}},
	}
	require.NoError(t, s.LoadFixture(ctx, "People", rows))

	got, err := s.Fixture(ctx, "People")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, row := range got {
		assert.Equal(t, "People", row.Set)
		assert.True(t, ir.EqualValues(rows[i], row.Value), "row %d: %v", i, row.Value)
	}
	assert.Equal(t, ir.IRInt(9007199254740993), got[1].Value.(ir.IRObject)["Age"], "large integers keep precision")
}

func TestLoadFixture_RejectsUnencodableRows(t *testing.T) {
	s := createTestStore(t)

	rows := []ir.IRValue{ir.IRObject{"ok": ir.IRInt(1)}, ir.IRObject{"missing": nil}}
	err := s.LoadFixture(context.Background(), "Bad", rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load fixture Bad: row 1")

	got, err := s.Fixture(context.Background(), "Bad")
	require.NoError(t, err)
	assert.Empty(t, got, "failed load is rolled back")
}

func TestClearFixture(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LoadFixture(ctx, "Tags", []ir.IRValue{ir.IRString("a")}))
	require.NoError(t, s.ClearFixture(ctx, "Tags"))

	got, err := s.Fixture(ctx, "Tags")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FindRun(context.Background(), "Missing", 1)
	if err != sql.ErrNoRows {
		t.Errorf("FindRun() error = %v, want sql.ErrNoRows", err)
	}
}
