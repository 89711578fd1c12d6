package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constant literal values.
// Only IRNull, IRString, IRInt, IRBool, IRArray and IRObject implement it.
// NO IRFloat - floats are forbidden in the IR (breaks canonical hashing).
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull is the null literal.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString is a text literal.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer literal. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an array literal.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject is a record literal. Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's default string comparison uses UTF-8 which produces a different order.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// ValueAssignable reports whether literal v may be the value of a constant of
// type t. Null is accepted for reference-like types (text, optionals,
// structs, sequences, any) but not for int64 or bool.
func ValueAssignable(v IRValue, t *Type) bool {
	switch val := v.(type) {
	case IRNull:
		return !SameType(t, Int64) && !SameType(t, Bool)
	case IRString:
		return SameType(t, String) || SameType(t, Any) || IsSequence(t) ||
			(t.kind == KindOptional && ValueAssignable(val, t.args[0]))
	case IRInt:
		return SameType(t, Int64) || SameType(t, Any) ||
			(t.kind == KindOptional && ValueAssignable(val, t.args[0]))
	case IRBool:
		return SameType(t, Bool) || SameType(t, Any) ||
			(t.kind == KindOptional && ValueAssignable(val, t.args[0]))
	case IRArray:
		if SameType(t, Any) {
			return true
		}
		elem := ElementType(t)
		if t.kind == KindArray {
			elem = t.args[0]
		}
		if elem == nil {
			return false
		}
		for _, e := range val {
			if !ValueAssignable(e, elem) {
				return false
			}
		}
		return true
	case IRObject:
		return t.kind == KindStruct || SameType(t, Any)
	}
	return false
}

// GoValue converts a literal to its plain Go representation: nil, string,
// int64, bool, []any or map[string]any.
func GoValue(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = GoValue(e)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = GoValue(e)
		}
		return out
	}
	return nil
}

// FromGo converts a plain Go value to a literal.
// Floats are rejected; whole-number float64 values (as produced by JSON and
// YAML decoders) are accepted as integers.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case bool:
		return IRBool(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
		}
		return IRInt(int64(val)), nil
	case float32:
		return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, e := range val {
			irElem, err := FromGo(e)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, e := range val {
			irElem, err := FromGo(e)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// EqualValues reports deep equality of two literals.
func EqualValues(a, b IRValue) bool {
	switch av := a.(type) {
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRString, IRInt, IRBool:
		return a == b
	case IRArray:
		bv, ok := b.(IRArray)
		return ok && slices.EqualFunc(av, bv, EqualValues)
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, e := range av {
			other, ok := bv[k]
			if !ok || !EqualValues(e, other) {
				return false
			}
		}
		return true
	}
	return false
}
