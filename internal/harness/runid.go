package harness

import (
	"github.com/google/uuid"
)

// RunIDGenerator names a fuzz session in the run ledger.
//
// Implementations:
//   - UUIDv7Generator: production use
//   - testutil.FixedRunIDGenerator: deterministic tests
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids, so ledger
// sessions sort by start time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
