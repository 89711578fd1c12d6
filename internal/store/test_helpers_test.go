package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/querypipe/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(runID, testID string, seed int64, outcome string) ir.RunRecord {
	fp := "fp-" + testID
	key, err := ir.RunKey(testID, seed, fp)
	if err != nil {
		panic(err)
	}
	return ir.RunRecord{
		RunID:       runID,
		RunKey:      key,
		TestID:      testID,
		Seed:        seed,
		Query:       "Customers",
		Fingerprint: fp,
		Outcome:     outcome,
	}
}
