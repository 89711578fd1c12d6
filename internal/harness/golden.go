package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querypipe/internal/ir"
)

// SessionSnapshot captures the classified results of a fuzz session.
// All fields use canonical JSON serialization for deterministic comparison.
type SessionSnapshot struct {
	TestID  string   `json:"test_id"`
	Results []Result `json:"results"`
}

// toCanonicalMap converts a SessionSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *SessionSnapshot) toCanonicalMap() map[string]any {
	results := make([]any, len(s.Results))
	for i, r := range s.Results {
		entry := map[string]any{
			"seed":        r.Seed,
			"outcome":     string(r.Outcome),
			"rows":        r.Rows,
			"query":       r.Query,
		}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		}
		results[i] = entry
	}
	return map[string]any{
		"test_id": s.TestID,
		"results": results,
	}
}

// Canonical returns the snapshot as canonical JSON.
func (s *SessionSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// AssertGolden compares a session's results against a golden file.
// The golden file is stored in testdata/golden/{name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the snapshot cannot be serialized.
// Test failure (via goldie) occurs if the session doesn't match the golden file.
func AssertGolden(t *testing.T, name string, testID string, results []Result) error {
	t.Helper()

	snapshot := SessionSnapshot{TestID: testID, Results: results}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
	return nil
}
