package harness

import "strings"

// TestIDFromName maps a Go test name to a logical test id: the last subtest
// segment, or the top-level name without its "Test" prefix.
//
//	TestQueries/Except_simple -> Except_simple
//	TestExcept_simple         -> Except_simple
func TestIDFromName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return strings.TrimPrefix(name, "Test")
}
