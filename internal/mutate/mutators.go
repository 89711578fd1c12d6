package mutate

import (
	"math/rand/v2"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
)

// Mutator is one structure-preserving edit of a queryable tree.
//
// Apply must only be called on trees Valid accepts, and must then return a
// tree that is still a valid queryable. Apply draws its own choices (which
// literal, which field) from r.
type Mutator struct {
	Name  string
	Valid func(n ir.Node) bool
	Apply func(n ir.Node, r *rand.Rand) (ir.Node, error)
}

// Mutator names.
const (
	NameAppendSelectConstant  = "AppendSelectConstant"
	NameAppendSelectIdentity  = "AppendSelectIdentity"
	NameAppendSelectProperty  = "AppendSelectProperty"
	NameAppendOrderByIdentity = "AppendOrderByIdentity"
)

// elementParameter is the lambda parameter every appended selector binds.
const elementParameter = "prm"

// Catalogue returns every mutator, with deny applied to property selection.
func Catalogue(deny Denylist) []Mutator {
	return []Mutator{
		AppendSelectConstant(),
		AppendSelectIdentity(),
		AppendSelectProperty(deny),
		AppendOrderByIdentity(),
	}
}

func isQueryable(n ir.Node) bool {
	return n != nil && ir.IsQueryable(n.Type())
}

// literals are the constants AppendSelectConstant projects onto. The null
// optional number and null string exercise null handling in projections.
var literals = []*ir.Constant{
	ir.MustConstant(ir.Int64, ir.IRInt(1)),
	ir.MustConstant(ir.Bool, ir.IRBool(true)),
	ir.MustConstant(ir.String, ir.IRString("Foo")),
	ir.MustConstant(ir.Optional(ir.Int64), nil),
	ir.MustConstant(ir.String, nil),
}

// AppendSelectConstant appends Select(prm => literal) with a literal drawn
// from a fixed set.
func AppendSelectConstant() Mutator {
	return Mutator{
		Name:  NameAppendSelectConstant,
		Valid: isQueryable,
		Apply: func(n ir.Node, r *rand.Rand) (ir.Node, error) {
			prm := ir.NewParameter(elementParameter, ir.ElementType(n.Type()))
			lit := literals[r.IntN(len(literals))]
			return queryir.Select(n, ir.NewLambda(lit, prm))
		},
	}
}

// AppendSelectIdentity appends Select(prm => prm). The result is unchanged,
// which checks that the pipeline tolerates trivial projections.
func AppendSelectIdentity() Mutator {
	return Mutator{
		Name:  NameAppendSelectIdentity,
		Valid: isQueryable,
		Apply: func(n ir.Node, _ *rand.Rand) (ir.Node, error) {
			prm := ir.NewParameter(elementParameter, ir.ElementType(n.Type()))
			return queryir.Select(n, ir.NewLambda(prm, prm))
		},
	}
}

// AppendSelectProperty appends Select(prm => prm.Field) for a field drawn
// uniformly from the element type's eligible fields.
func AppendSelectProperty(deny Denylist) Mutator {
	return Mutator{
		Name: NameAppendSelectProperty,
		Valid: func(n ir.Node) bool {
			return isQueryable(n) && len(deny.EligibleFields(ir.ElementType(n.Type()))) > 0
		},
		Apply: func(n ir.Node, r *rand.Rand) (ir.Node, error) {
			elem := ir.ElementType(n.Type())
			fields := deny.EligibleFields(elem)
			f := fields[r.IntN(len(fields))]
			prm := ir.NewParameter(elementParameter, elem)
			m, err := ir.NewMember(prm, f.Name)
			if err != nil {
				return nil, err
			}
			return queryir.Select(n, ir.NewLambda(m, prm))
		},
	}
}

// AppendOrderByIdentity appends OrderBy(prm => prm), or OrderByDescending
// with probability 1/3. Valid only for comparable elements.
func AppendOrderByIdentity() Mutator {
	return Mutator{
		Name: NameAppendOrderByIdentity,
		Valid: func(n ir.Node) bool {
			return isQueryable(n) && ir.Implements(ir.ElementType(n.Type()), ir.Comparable)
		},
		Apply: func(n ir.Node, r *rand.Rand) (ir.Node, error) {
			prm := ir.NewParameter(elementParameter, ir.ElementType(n.Type()))
			key := ir.NewLambda(prm, prm)
			if r.IntN(3) == 0 {
				return queryir.OrderByDescending(n, key)
			}
			return queryir.OrderBy(n, key)
		},
	}
}
