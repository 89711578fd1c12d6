package mutate

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
	"github.com/roach88/querypipe/internal/testutil"
)

func fieldNames(fields []ir.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestEligibleFields(t *testing.T) {
	deny := DefaultDenylist()

	tests := []struct {
		name string
		typ  *ir.Type
		want []string
	}{
		{"entity", testutil.Person, []string{"Name", "Age"}},
		{"order shipping fields", testutil.Order, []string{"OrderID", "CustomerID"}},
		{"string indexer", ir.String, []string{"Length"}},
		{"list metadata", ir.List(ir.Int64), []string{"Count"}},
		{"array metadata", ir.Array(ir.Int64), []string{"Length"}},
		{"optional value", ir.Optional(ir.Int64), []string{"HasValue"}},
		{"no fields", testutil.Blob, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deny.EligibleFields(tt.typ)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, fieldNames(got))
		})
	}
}

func TestDenylistMerge(t *testing.T) {
	merged := DefaultDenylist().Merge(Denylist{"Person": {"Age"}, "string": {"Chars", "Length"}})

	assert.Equal(t, []string{"Name"}, fieldNames(merged.EligibleFields(testutil.Person)))
	assert.Empty(t, merged.EligibleFields(ir.String))
	assert.Equal(t, []string{"Chars"}, DefaultDenylist()["string"], "merge does not modify the receiver")
}

func TestDenylistKeysGenericTypesByFamily(t *testing.T) {
	deny := Denylist{"List": {"Count"}}

	assert.True(t, deny.Excludes(ir.List(ir.Int64), "Count"))
	assert.True(t, deny.Excludes(ir.List(ir.String), "Count"))
	assert.False(t, deny.Excludes(ir.Int64, "Count"))
}

func TestMutatorValidity(t *testing.T) {
	people := queryir.Source("People", testutil.Person)
	numbers := queryir.Source("Numbers", ir.Int64)
	blobs := queryir.Source("Blobs", testutil.Blob)
	scalar := ir.MustConstant(ir.Int64, ir.IRInt(1))
	deny := DefaultDenylist()

	tests := []struct {
		mutator Mutator
		valid   []ir.Node
		invalid []ir.Node
	}{
		{AppendSelectConstant(), []ir.Node{people, numbers, blobs}, []ir.Node{scalar}},
		{AppendSelectIdentity(), []ir.Node{people, numbers, blobs}, []ir.Node{scalar}},
		{AppendSelectProperty(deny), []ir.Node{people}, []ir.Node{numbers, blobs, scalar}},
		{AppendOrderByIdentity(), []ir.Node{numbers}, []ir.Node{people, blobs, scalar}},
	}

	for _, tt := range tests {
		t.Run(tt.mutator.Name, func(t *testing.T) {
			for _, n := range tt.valid {
				assert.True(t, tt.mutator.Valid(n), "%s should accept %s", tt.mutator.Name, n.Type())
			}
			for _, n := range tt.invalid {
				assert.False(t, tt.mutator.Valid(n), "%s should reject %s", tt.mutator.Name, n.Type())
			}
		})
	}
}

func TestAppendSelectIdentityKeepsElementType(t *testing.T) {
	people := queryir.Source("People", testutil.Person)
	out, err := AppendSelectIdentity().Apply(people, NewRand(1))
	require.NoError(t, err)

	assert.Equal(t, `Select[Person, Person]("People":Queryable[Person], (prm) => prm)`, ir.Format(out))
}

func TestAppendOrderByIdentityDescendingOneInThree(t *testing.T) {
	numbers := queryir.Source("Numbers", ir.Int64)
	m := AppendOrderByIdentity()

	const runs = 3000
	descending := 0
	for seed := range int64(runs) {
		out, err := m.Apply(numbers, NewRand(seed))
		require.NoError(t, err)
		op := out.(*ir.Operator)
		switch op.Name() {
		case queryir.OpOrderByDescending:
			descending++
		case queryir.OpOrderBy:
		default:
			t.Fatalf("unexpected operator %s", op.Name())
		}
	}
	ratio := float64(descending) / runs
	assert.InDelta(t, 1.0/3, ratio, 0.05)
}

func TestExpandSeedReproduction(t *testing.T) {
	g := NewGenerator(WithMutators(AppendSelectProperty(DefaultDenylist())))
	people := queryir.Source("People", testutil.Person)

	const seed = 1847891685
	first, err := g.Expand(seed, people)
	require.NoError(t, err)

	sel := first.(*ir.Operator)
	require.Equal(t, queryir.OpSelect, sel.Name())
	picked := sel.Operand(1).(*ir.Lambda).Body().(*ir.Member).Field()
	assert.Contains(t, []string{"Name", "Age"}, picked)

	for range 50 {
		again, err := g.Expand(seed, people)
		require.NoError(t, err)
		assert.True(t, ir.Equal(first, again))
		assert.Equal(t, ir.MustFingerprint(first), ir.MustFingerprint(again))
	}

	name, ok := g.Explain(seed, people)
	require.True(t, ok)
	assert.Equal(t, NameAppendSelectProperty, name)
}

func TestExpandFixedPoint(t *testing.T) {
	blob := ir.MustConstant(testutil.Blob, ir.IRObject{})
	g := NewGenerator()

	for seed := range int64(50) {
		out, err := g.Expand(seed, blob)
		require.NoError(t, err)
		assert.True(t, out == ir.Node(blob))

		_, ok := g.Explain(seed, blob)
		assert.False(t, ok)
	}
}

func TestExpandWithEmptyCatalogue(t *testing.T) {
	people := queryir.Source("People", testutil.Person)
	out, err := NewGenerator(WithMutators()).Expand(7, people)
	require.NoError(t, err)
	assert.True(t, out == ir.Node(people))
}

func TestExpandRejectsNonQueryableMutation(t *testing.T) {
	broken := Mutator{
		Name:  "Broken",
		Valid: func(ir.Node) bool { return true },
		Apply: func(ir.Node, *rand.Rand) (ir.Node, error) {
			return ir.MustConstant(ir.Int64, ir.IRInt(1)), nil
		},
	}
	_, err := NewGenerator(WithMutators(broken)).Expand(1, queryir.Source("People", testutil.Person))
	require.Error(t, err)
	assert.True(t, ir.IsStructuralError(err))
}

func genBase(t *rapid.T) ir.Node {
	elem := rapid.SampledFrom([]*ir.Type{
		testutil.Customer,
		testutil.Order,
		testutil.Person,
		testutil.Blob,
		ir.Int64,
		ir.String,
		ir.List(ir.Int64),
	}).Draw(t, "elem")
	base := ir.Node(queryir.Source("Set", elem))
	if ir.Implements(elem, ir.Comparable) && rapid.Bool().Draw(t, "ordered") {
		prm := ir.NewParameter("x", elem)
		ordered, err := queryir.OrderBy(base, ir.NewLambda(prm, prm))
		if err != nil {
			t.Fatalf("OrderBy: %v", err)
		}
		base = ordered
	}
	return base
}

func TestMutatorsPreserveValidity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := genBase(t)
		seed := rapid.Int64().Draw(t, "seed")

		for _, m := range Catalogue(DefaultDenylist()) {
			if !m.Valid(base) {
				continue
			}
			out, err := m.Apply(base, NewRand(seed))
			if err != nil {
				t.Fatalf("%s: %v", m.Name, err)
			}
			if !ir.IsQueryable(out.Type()) {
				t.Fatalf("%s produced %s", m.Name, out.Type())
			}
			if res := queryir.Validate(out); !res.Valid {
				t.Fatalf("%s produced an invalid tree: %v", m.Name, res.Err())
			}
		}
	})
}

func TestExpandDeterminism(t *testing.T) {
	g := NewGenerator()
	rapid.Check(t, func(t *rapid.T) {
		base := genBase(t)
		seed := rapid.Int64().Draw(t, "seed")

		a, err := g.Expand(seed, base)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		b, err := g.Expand(seed, base)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if !ir.Equal(a, b) {
			t.Fatalf("seed %d: %s != %s", seed, ir.Format(a), ir.Format(b))
		}
	})
}
