package harness

import (
	"errors"
	"fmt"
)

// Outcome classifies one execution.
type Outcome string

const (
	// OutcomePassed means the query drained without error.
	OutcomePassed Outcome = "passed"

	// OutcomeNoise means the error matched a global noise pattern.
	OutcomeNoise Outcome = "noise"

	// OutcomeKnownFailure means the error matched the test's registry entry.
	OutcomeKnownFailure Outcome = "known_failure"

	// OutcomeUnclassified means the error matched nothing. Fatal.
	OutcomeUnclassified Outcome = "unclassified"

	// OutcomeCompileError means the query never reached evaluation.
	OutcomeCompileError Outcome = "compile_error"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomePassed,
	OutcomeNoise,
	OutcomeKnownFailure,
	OutcomeUnclassified,
	OutcomeCompileError,
}

// Result is the outcome of executing one query.
type Result struct {
	TestID string `json:"test_id"`
	Seed   int64  `json:"seed"`

	Outcome Outcome `json:"outcome"`

	// Rows is the number of rows drained. Zero unless Outcome is passed.
	Rows int `json:"rows"`

	// Query is the Format rendering of the executed query before
	// compilation.
	Query string `json:"query"`

	// Fingerprint is the content hash of Query's tree.
	Fingerprint string `json:"fingerprint"`

	// Err is the error raised, swallowed or not. Nil when passed.
	Err error `json:"-"`
}

// Failed reports whether the result must fail the test.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeUnclassified || r.Outcome == OutcomeCompileError
}

// UnclassifiedError is returned for an execution error no noise pattern or
// registry entry accepts. It carries the seed needed to replay the mutation.
type UnclassifiedError struct {
	TestID string
	Seed   int64
	Err    error
}

// Error implements the error interface.
func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("unclassified failure in %s (seed=%d): %v", e.TestID, e.Seed, e.Err)
}

// Unwrap returns the execution error.
func (e *UnclassifiedError) Unwrap() error {
	return e.Err
}

// IsUnclassifiedError returns true if err is or wraps an UnclassifiedError.
func IsUnclassifiedError(err error) bool {
	var ue *UnclassifiedError
	return errors.As(err, &ue)
}
