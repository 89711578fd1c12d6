// Package mutate implements the procedural mutator: seeded, validity-gated
// structural edits of a queryable tree, used to stress the pipeline with
// query shapes no hand-written test covers.
package mutate

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/roach88/querypipe/internal/ir"
)

// Generator applies one mutation chosen by seed.
//
// The mutator list is fixed at construction and read-only afterwards, so a
// Generator may be shared between goroutines.
type Generator struct {
	mutators []Mutator
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMutators replaces the catalogue. Order matters: a seed selects by
// index among the valid mutators.
func WithMutators(ms ...Mutator) Option {
	return func(g *Generator) {
		g.mutators = slices.Clone(ms)
	}
}

// WithDenylist rebuilds the default catalogue with deny applied to property
// selection.
func WithDenylist(deny Denylist) Option {
	return func(g *Generator) {
		g.mutators = Catalogue(deny)
	}
}

// WithLogger sets the logger for mutation decisions.
//
// Default: a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a generator over Catalogue(DefaultDenylist()).
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		mutators: Catalogue(DefaultDenylist()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewRand returns the deterministic source for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// Mutators returns the catalogue in selection order.
func (g *Generator) Mutators() []Mutator {
	return slices.Clone(g.mutators)
}

func (g *Generator) pick(seed int64, n ir.Node) (*Mutator, *rand.Rand) {
	var valid []*Mutator
	for i := range g.mutators {
		if g.mutators[i].Valid(n) {
			valid = append(valid, &g.mutators[i])
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	r := NewRand(seed)
	return valid[r.IntN(len(valid))], r
}

// Expand applies the mutation seed selects to n. When no mutator accepts n,
// n itself is returned.
//
// The same seed and tree always produce a structurally equal result.
func (g *Generator) Expand(seed int64, n ir.Node) (ir.Node, error) {
	m, r := g.pick(seed, n)
	if m == nil {
		g.logger.Debug("no valid mutator", "seed", seed)
		return n, nil
	}
	out, err := m.Apply(n, r)
	if err != nil {
		return nil, err
	}
	if !ir.IsQueryable(out.Type()) {
		return nil, ir.NewStructuralError(ir.ErrCodeTypeMismatch, m.Name,
			"mutation produced %s, want a queryable", out.Type())
	}
	g.logger.Debug("applied mutator", "seed", seed, "mutator", m.Name)
	return out, nil
}

// Explain reports which mutator seed selects for n, without applying it.
// ok is false when no mutator accepts n.
func (g *Generator) Explain(seed int64, n ir.Node) (name string, ok bool) {
	m, _ := g.pick(seed, n)
	if m == nil {
		return "", false
	}
	return m.Name, true
}
