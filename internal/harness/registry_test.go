package harness

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterKeepsDuplicates(t *testing.T) {
	r := NewRegistry()
	r.Register("Except_simple", "cannot be used for")
	r.Register("Except_simple", "cannot be used for")
	r.Register("Except_simple", "no translation")

	assert.Equal(t, []string{"cannot be used for", "cannot be used for", "no translation"}, r.Accepted("Except_simple"))
	assert.Empty(t, r.Accepted("Where_simple"))
}

func TestRegistry_AcceptedReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register("A", "x")

	got := r.Accepted("A")
	got[0] = "mutated"
	assert.Equal(t, []string{"x"}, r.Accepted("A"))
}

func TestRegistry_Classify(t *testing.T) {
	r := NewRegistry()
	r.Register("Except_simple", "cannot be used for")

	tests := []struct {
		name   string
		testID string
		msg    string
		want   Outcome
	}{
		{"known substring", "Except_simple", "Type X cannot be used for parameter Y", OutcomeKnownFailure},
		{"other message", "Except_simple", "divide by zero", OutcomeUnclassified},
		{"other test", "Where_simple", "Type X cannot be used for parameter Y", OutcomeUnclassified},
		{"noise wins", "Where_simple", "step failed: database is locked", OutcomeNoise},
		{"noise before known", "Except_simple", "SQLITE_BUSY: cannot be used for", OutcomeNoise},
		{"case sensitive", "Except_simple", "CANNOT BE USED FOR", OutcomeUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.testID, tt.msg))
		})
	}
}

func TestRegistry_AddNoise(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsNoise("connection reset by peer"))

	r.AddNoise("connection reset")
	assert.True(t, r.IsNoise("connection reset by peer"))
	assert.Equal(t, slices.Concat(DefaultNoise, []string{"connection reset"}), r.Noise())
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := NewRegistry()
	r.Register("Except_simple", "cannot be used for")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, r.Matches("Except_simple", "Type X cannot be used for parameter Y"))
			}
		}()
	}
	wg.Wait()
}
