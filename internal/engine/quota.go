package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxRows is the default maximum number of data-set rows a single
// evaluation may read. This stops a runaway join from reading unbounded data.
const DefaultMaxRows = 100_000

// RowQuota tracks the rows read from data sets during one evaluation and
// enforces a maximum.
//
// Each evaluation has its own RowQuota. Rows are counted as they are read,
// so a data set iterated twice (the inner side of a re-drained join) counts
// twice. A limit of zero or less disables the check.
type RowQuota struct {
	maxRows int
	current int
}

// NewRowQuota creates a quota with the given limit.
func NewRowQuota(maxRows int) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Check counts one row read from set and validates against the limit.
//
// Returns RowsExceededError if the quota is exceeded.
func (q *RowQuota) Check(set string) error {
	q.current++
	if q.maxRows > 0 && q.current > q.maxRows {
		return &RowsExceededError{
			Set:   set,
			Rows:  q.current,
			Limit: q.maxRows,
		}
	}
	return nil
}

// Current returns the number of rows read so far.
func (q *RowQuota) Current() int {
	return q.current
}

// MaxRows returns the limit.
func (q *RowQuota) MaxRows() int {
	return q.maxRows
}

// RowsExceededError is returned when an evaluation reads more rows than its
// quota allows. The evaluation stops at the row that crossed the limit.
type RowsExceededError struct {
	Set   string // The data set being read when the limit was crossed
	Rows  int    // Number of rows read
	Limit int    // Maximum allowed rows
}

// Error implements the error interface.
func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("evaluation exceeded row quota reading %s: %d rows > %d limit",
		e.Set, e.Rows, e.Limit)
}

// IsRowsExceededError returns true if the error is a RowsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRowsExceededError(err error) bool {
	var re *RowsExceededError
	return errors.As(err, &re)
}
