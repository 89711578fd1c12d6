package mutate

import (
	"maps"
	"slices"

	"github.com/roach88/querypipe/internal/ir"
)

// Denylist maps a type name to the fields that must never be projected from
// it. Generic types are keyed by family name ("List", "Array", "Optional").
//
// Entries are domain knowledge about fields whose projection fails for
// reasons unrelated to the pipeline under test, so a denylist is supplied by
// configuration rather than hard-coded into the mutators.
type Denylist map[string][]string

// DefaultDenylist returns the built-in entries: positional accessors and
// collection metadata that have no query translation, plus the model fields
// known to break projection.
func DefaultDenylist() Denylist {
	return Denylist{
		"string":   {"Chars"},
		"List":     {"Item", "Capacity", "IsReadOnly"},
		"Array":    {"Rank", "IsFixedSize", "IsSynchronized"},
		"Optional": {"Value"},
		"Gear":     {"IsMarcus"},
		"Officer":  {"IsMarcus"},
		"Order": {
			"Freight",
			"RequiredDate",
			"ShipAddress",
			"ShipCity",
			"ShipCountry",
			"ShipName",
			"ShipPostalCode",
			"ShipRegion",
			"ShipVia",
			"ShippedDate",
		},
	}
}

// Excludes reports whether field of t is denylisted. Generic types are keyed
// by family, so an entry for "List" covers every List[T].
func (d Denylist) Excludes(t *ir.Type, field string) bool {
	return slices.Contains(d[ir.TypeKey(t)], field)
}

// Merge returns a denylist holding the entries of d and other.
func (d Denylist) Merge(other Denylist) Denylist {
	out := make(Denylist, len(d)+len(other))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	for _, k := range slices.Sorted(maps.Keys(other)) {
		for _, f := range other[k] {
			if !slices.Contains(out[k], f) {
				out[k] = append(out[k], f)
			}
		}
	}
	return out
}

// EligibleFields returns the fields of t a projection may select, in
// declaration order: indexers and denylisted fields are left out.
func (d Denylist) EligibleFields(t *ir.Type) []ir.Field {
	var out []ir.Field
	for _, f := range t.Fields() {
		if f.Indexer || d.Excludes(t, f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}
