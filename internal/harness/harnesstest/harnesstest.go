// Package harnesstest provides helpers for driving the harness from Go tests.
package harnesstest

import (
	"testing"

	"github.com/roach88/querypipe/internal/harness"
)

// TestID returns the logical test id of the running test, so registry
// entries and ledger rows can be keyed by subtest name.
func TestID(tb testing.TB) string {
	tb.Helper()
	return harness.TestIDFromName(tb.Name())
}
