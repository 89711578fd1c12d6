package ir

// NOTE: These are store-internal types, not part of the query IR.
// They use auto-increment IDs for FK references.

// RunRecord is one classified fuzz execution as persisted by the run ledger.
//
// RunKey is content-addressed (see RunKey). Query holds the Format rendering
// of the mutated tree and Fingerprint its content hash. Outcome is one of
// passed, noise, known_failure, unclassified or compile_error.
type RunRecord struct {
	ID          int64  `json:"id"`
	RunID       string `json:"run_id"`
	RunKey      string `json:"run_key"`
	TestID      string `json:"test_id"`
	Seed        int64  `json:"seed"`
	Query       string `json:"query"`
	Fingerprint string `json:"fingerprint"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
}

// FixtureRow is one element of a named source set. ID preserves insertion
// order.
type FixtureRow struct {
	ID    int64   `json:"id"`
	Set   string  `json:"set"`
	Value IRValue `json:"value"`
}
