package store

import (
	"context"
	"fmt"

	"github.com/roach88/querypipe/internal/ir"
)

// RecordRun appends a classified execution to the ledger.
// Uses ON CONFLICT(run_id, run_key) DO NOTHING for idempotency - recording
// the same run twice within one session is silently ignored.
//
// The returned id is the row's ledger position; it is 0 when the run was
// already recorded.
func (s *Store) RecordRun(ctx context.Context, run ir.RunRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, run_key, test_id, seed, query, fingerprint, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, run_key) DO NOTHING
	`,
		run.RunID,
		run.RunKey,
		run.TestID,
		run.Seed,
		run.Query,
		run.Fingerprint,
		run.Outcome,
		run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// LoadFixture declares a named source set and appends rows to it in a
// single transaction. Rows are stored as canonical JSON and read back in
// insertion order. Loading no rows declares an empty set.
func (s *Store) LoadFixture(ctx context.Context, set string, rows []ir.IRValue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load fixture %s: %w", set, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sets (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, set); err != nil {
		return fmt.Errorf("load fixture %s: %w", set, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fixtures (set_name, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("load fixture %s: %w", set, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		value, err := marshalValue(row)
		if err != nil {
			return fmt.Errorf("load fixture %s: row %d: %w", set, i, err)
		}
		if _, err := stmt.ExecContext(ctx, set, value); err != nil {
			return fmt.Errorf("load fixture %s: row %d: %w", set, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load fixture %s: %w", set, err)
	}
	return nil
}

// ClearFixture removes every row of a source set and its declaration.
func (s *Store) ClearFixture(ctx context.Context, set string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear fixture %s: %w", set, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fixtures WHERE set_name = ?`, set); err != nil {
		return fmt.Errorf("clear fixture %s: %w", set, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE name = ?`, set); err != nil {
		return fmt.Errorf("clear fixture %s: %w", set, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear fixture %s: %w", set, err)
	}
	return nil
}
