package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/querypipe/internal/engine"
	"github.com/roach88/querypipe/internal/ir"
)

const runColumns = `id, run_id, run_key, test_id, seed, query, fingerprint, outcome, error`

// Runs returns every recorded run of a test in ledger order.
//
// Returns an empty slice (not nil) if the test has no runs.
func (s *Store) Runs(ctx context.Context, testID string) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE test_id = ?
		ORDER BY id ASC
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FindRun returns the most recent run of a test with the given seed.
// Returns sql.ErrNoRows if not found.
func (s *Store) FindRun(ctx context.Context, testID string, seed int64) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE test_id = ? AND seed = ?
		ORDER BY id DESC
		LIMIT 1
	`, testID, seed)
	return scanRun(row)
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	err := sc.Scan(
		&run.ID,
		&run.RunID,
		&run.RunKey,
		&run.TestID,
		&run.Seed,
		&run.Query,
		&run.Fingerprint,
		&run.Outcome,
		&run.Error,
	)
	if err == sql.ErrNoRows {
		return ir.RunRecord{}, err
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// Fixture returns the stored rows of a source set in insertion order.
//
// Returns an empty slice (not nil) if the set holds no rows.
func (s *Store) Fixture(ctx context.Context, set string) ([]ir.FixtureRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, set_name, value
		FROM fixtures
		WHERE set_name = ?
		ORDER BY id ASC
	`, set)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	out := []ir.FixtureRow{}
	for rows.Next() {
		var (
			row  ir.FixtureRow
			data string
		)
		if err := rows.Scan(&row.ID, &row.Set, &data); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		if row.Value, err = unmarshalValue(data); err != nil {
			return nil, fmt.Errorf("fixture %s row %d: %w", set, row.ID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return out, nil
}

// HasSet reports whether a source set has been declared by LoadFixture.
func (s *Store) HasSet(ctx context.Context, set string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sets WHERE name = ?`, set).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query sets: %w", err)
	}
	return n > 0, nil
}

// Rows implements engine.DataSource over the fixtures table.
//
// A declared set with no rows is empty; an undeclared set is unknown. Rows
// not assignable to elem are evaluation failures, not storage errors.
func (s *Store) Rows(ctx context.Context, set string, elem *ir.Type) ([]ir.IRValue, error) {
	fixture, err := s.Fixture(ctx, set)
	if err != nil {
		return nil, err
	}
	if len(fixture) == 0 {
		known, err := s.HasSet(ctx, set)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, engine.NewUnknownSetError(set)
		}
		return []ir.IRValue{}, nil
	}

	out := make([]ir.IRValue, len(fixture))
	for i, row := range fixture {
		if !ir.ValueAssignable(row.Value, elem) {
			return nil, &engine.RuntimeError{
				Code:    engine.ErrCodeEvaluationFailed,
				Message: fmt.Sprintf("row %d of %s is not assignable to %s", i, set, elem),
			}
		}
		out[i] = row.Value
	}
	return out, nil
}

var _ engine.DataSource = (*Store)(nil)
