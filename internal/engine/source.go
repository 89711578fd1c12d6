package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/querypipe/internal/ir"
)

// DataSource supplies the rows of named data sets. The interpreter reads a
// set when the sequence over it is first iterated.
//
// Implemented by MemorySource (tests, fixtures) and store.Store (SQLite).
type DataSource interface {
	// Rows returns every row of set in a stable order. Each row must be
	// assignable to elem.
	Rows(ctx context.Context, set string, elem *ir.Type) ([]ir.IRValue, error)
}

// MemorySource is an in-memory DataSource. It is safe for concurrent use.
type MemorySource struct {
	mu   sync.RWMutex
	sets map[string][]ir.IRValue
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{sets: make(map[string][]ir.IRValue)}
}

// Add appends rows to set, creating it if needed.
func (m *MemorySource) Add(set string, rows ...ir.IRValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set] = append(m.sets[set], rows...)
}

// AddObjects appends object rows to set.
func (m *MemorySource) AddObjects(set string, rows ...ir.IRObject) {
	values := make([]ir.IRValue, len(rows))
	for i, r := range rows {
		values[i] = r
	}
	m.Add(set, values...)
}

// Rows implements DataSource.
func (m *MemorySource) Rows(ctx context.Context, set string, elem *ir.Type) ([]ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	rows, ok := m.sets[set]
	m.mu.RUnlock()
	if !ok {
		return nil, NewUnknownSetError(set)
	}
	for i, r := range rows {
		if !ir.ValueAssignable(r, elem) {
			return nil, evaluationError("", "row %d of %s is not assignable to %s", i, set, elem)
		}
	}
	return slices.Clone(rows), nil
}
