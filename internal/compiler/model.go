// Package compiler turns a CUE entity model into IR types, named source sets
// and their fixture rows.
//
// A model declares struct types under "type" and data sets under "set":
//
//	type: Customer: {
//		CustomerID: string
//		Name:       string
//		City:       string | null
//		Age:        int
//	}
//	set: Customers: {
//		type: "Customer"
//		rows: [{CustomerID: "ALFKI", Name: "Alfreds", City: "Berlin", Age: 41}]
//	}
//
// Field kinds map to IR types: string, int (int64), bool, lists ([...T]) and
// nullable fields (T | null, compiled to Optional[T]). Floats are forbidden
// throughout the IR and rejected here with their source position.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
)

// Model is a compiled entity model.
type Model struct {
	// Types maps a declared type name to its struct type.
	Types map[string]*ir.Type

	// Sets maps a data set name to its element type.
	Sets map[string]*ir.Type

	// Fixtures maps a data set name to its rows, each assignable to the
	// set's element type.
	Fixtures map[string][]ir.IRValue

	// TypeNames and SetNames list declarations in source order.
	TypeNames []string
	SetNames  []string
}

// Source returns the queryable constant reading set.
func (m *Model) Source(set string) (*ir.Constant, error) {
	elem, ok := m.Sets[set]
	if !ok {
		return nil, fmt.Errorf("model has no data set %q", set)
	}
	return queryir.Source(set, elem), nil
}

// CompileModel parses a CUE value into a Model.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the model root, holding the "type" and "set" structs:
//
//	ctx := cuecontext.New()
//	m, err := CompileModel(ctx.CompileString(src))
func CompileModel(v cue.Value) (*Model, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Model{
		Types:    make(map[string]*ir.Type),
		Sets:     make(map[string]*ir.Type),
		Fixtures: make(map[string][]ir.IRValue),
	}
	if err := m.parseTypes(v); err != nil {
		return nil, err
	}
	if err := m.parseSets(v); err != nil {
		return nil, err
	}
	if len(m.SetNames) == 0 {
		return nil, &CompileError{
			Field:   "set",
			Message: "at least one data set is required",
			Pos:     v.Pos(),
		}
	}
	return m, nil
}

// parseTypes extracts struct type declarations.
func (m *Model) parseTypes(v cue.Value) error {
	typesVal := v.LookupPath(cue.ParsePath("type"))
	if !typesVal.Exists() {
		return nil // a model of scalar sets needs no types
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		if builtinType(name) != nil {
			return &CompileError{
				Field:   "type." + name,
				Message: "type name shadows a builtin type",
				Pos:     iter.Value().Pos(),
			}
		}

		fieldIter, err := iter.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}
		var fields []ir.Field
		for fieldIter.Next() {
			ft, err := fieldType(fmt.Sprintf("type.%s.%s", name, fieldIter.Label()), fieldIter.Value())
			if err != nil {
				return err
			}
			fields = append(fields, ir.Field{Name: fieldIter.Label(), Type: ft})
		}

		m.Types[name] = ir.NewStruct(name, false, fields...)
		m.TypeNames = append(m.TypeNames, name)
	}
	return nil
}

// parseSets extracts data sets and their fixture rows.
func (m *Model) parseSets(v cue.Value) error {
	setsVal := v.LookupPath(cue.ParsePath("set"))
	if !setsVal.Exists() {
		return nil
	}

	iter, err := setsVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		setVal := iter.Value()

		typeVal := setVal.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return &CompileError{
				Field:   "set." + name + ".type",
				Message: "element type is required",
				Pos:     setVal.Pos(),
			}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		elem := m.lookupType(typeName)
		if elem == nil {
			return &CompileError{
				Field:   "set." + name + ".type",
				Message: fmt.Sprintf("unknown type %q", typeName),
				Pos:     typeVal.Pos(),
			}
		}

		rows, err := parseRows(name, elem, setVal.LookupPath(cue.ParsePath("rows")))
		if err != nil {
			return err
		}

		m.Sets[name] = elem
		m.Fixtures[name] = rows
		m.SetNames = append(m.SetNames, name)
	}
	return nil
}

func (m *Model) lookupType(name string) *ir.Type {
	if t := builtinType(name); t != nil {
		return t
	}
	return m.Types[name]
}

func builtinType(name string) *ir.Type {
	switch name {
	case "string":
		return ir.String
	case "int", "int64":
		return ir.Int64
	case "bool":
		return ir.Bool
	}
	return nil
}

// fieldType converts a CUE field constraint to an IR type.
// Floats are forbidden.
func fieldType(field string, v cue.Value) (*ir.Type, error) {
	kind := v.IncompleteKind()
	nullable := kind&cue.NullKind != 0 && kind != cue.NullKind
	kind &^= cue.NullKind

	var t *ir.Type
	switch kind {
	case cue.StringKind:
		t = ir.String
	case cue.IntKind:
		t = ir.Int64
	case cue.BoolKind:
		t = ir.Bool
	case cue.ListKind:
		elem, err := fieldType(field+"[]", v.LookupPath(cue.MakePath(cue.AnyIndex)))
		if err != nil {
			return nil, err
		}
		t = ir.List(elem)
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	if nullable {
		t = ir.Optional(t)
	}
	return t, nil
}

// parseRows converts the concrete rows of a set and checks each against
// elem. A set without rows is empty.
func parseRows(set string, elem *ir.Type, v cue.Value) ([]ir.IRValue, error) {
	rows := []ir.IRValue{}
	if !v.Exists() {
		return rows, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		rowVal := iter.Value()
		row, err := literal(fmt.Sprintf("set.%s.rows[%d]", set, i), rowVal)
		if err != nil {
			return nil, err
		}
		if msg := checkRow(row, elem); msg != "" {
			return nil, &CompileError{
				Field:   fmt.Sprintf("set.%s.rows[%d]", set, i),
				Message: msg,
				Pos:     rowVal.Pos(),
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// checkRow reports why row does not fit elem, or "" if it does. Omitted
// nullable fields are filled with null in place.
func checkRow(row ir.IRValue, elem *ir.Type) string {
	obj, ok := row.(ir.IRObject)
	if !ok || elem.Kind() != ir.KindStruct {
		if !ir.ValueAssignable(row, elem) {
			return fmt.Sprintf("row is not assignable to %s", elem)
		}
		return ""
	}

	known := make(map[string]bool, len(elem.Fields()))
	for _, f := range elem.Fields() {
		known[f.Name] = true
		v, ok := obj[f.Name]
		if !ok {
			if f.Type.Kind() != ir.KindOptional {
				return fmt.Sprintf("field %s is required", f.Name)
			}
			obj[f.Name] = ir.IRNull{}
			continue
		}
		if !ir.ValueAssignable(v, f.Type) {
			return fmt.Sprintf("field %s is not assignable to %s", f.Name, f.Type)
		}
	}
	for _, k := range obj.SortedKeys() {
		if !known[k] {
			return fmt.Sprintf("field %s is not declared by %s", k, elem)
		}
	}
	return ""
}

// literal converts a concrete CUE value to an IR literal.
func literal(field string, v cue.Value) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			e, err := literal(fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, e)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			e, err := literal(field+"."+iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = e
		}
		return obj, nil
	case cue.FloatKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: "row values must be concrete",
			Pos:     v.Pos(),
		}
	}
}
