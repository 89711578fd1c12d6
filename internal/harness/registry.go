package harness

import (
	"slices"
	"strings"
	"sync"
)

// DefaultNoise lists the messages swallowed for every test: store lock
// contention surfaces under parallel fuzzing and says nothing about the
// query under test.
var DefaultNoise = []string{
	"database is locked",
	"SQLITE_BUSY",
}

// Registry holds the accepted failure substrings per test id and the global
// noise patterns.
//
// A registry is meant to be populated during initialization and read
// afterwards. It is nevertheless safe for concurrent use: a registration
// is visible to every lookup that starts after it returns.
type Registry struct {
	mu       sync.RWMutex
	accepted map[string][]string
	noise    []string
}

// NewRegistry creates a registry with DefaultNoise and no known failures.
func NewRegistry() *Registry {
	return &Registry{
		accepted: make(map[string][]string),
		noise:    slices.Clone(DefaultNoise),
	}
}

// Register appends substring to the accepted list of testID. Registering the
// same pair twice keeps both entries.
func (r *Registry) Register(testID, substring string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted[testID] = append(r.accepted[testID], substring)
}

// AddNoise appends global noise patterns.
func (r *Registry) AddNoise(patterns ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noise = append(r.noise, patterns...)
}

// Accepted returns the accepted substrings of testID in registration order.
func (r *Registry) Accepted(testID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.accepted[testID])
}

// Noise returns the global noise patterns.
func (r *Registry) Noise() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.noise)
}

// IsNoise reports whether msg contains a noise pattern.
func (r *Registry) IsNoise(msg string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return containsAny(msg, r.noise)
}

// Matches reports whether msg contains any substring accepted for testID.
func (r *Registry) Matches(testID, msg string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return containsAny(msg, r.accepted[testID])
}

// Classify maps an execution error message to its outcome for testID.
// Noise is checked before known failures.
func (r *Registry) Classify(testID, msg string) Outcome {
	switch {
	case r.IsNoise(msg):
		return OutcomeNoise
	case r.Matches(testID, msg):
		return OutcomeKnownFailure
	default:
		return OutcomeUnclassified
	}
}

func containsAny(msg string, subs []string) bool {
	return slices.ContainsFunc(subs, func(s string) bool {
		return strings.Contains(msg, s)
	})
}
