package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// CRITICAL: This is the ONLY serialization used for fingerprints and for
// anything the store persists, so equal trees always produce equal bytes.
//
// Differences from json.Marshal:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//   - strings NFC normalized
//   - floats rejected
func MarshalCanonical(v any) ([]byte, error) {
	irv, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(irv)
}

func marshalCanonical(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return []byte("null"), nil
	case IRString:
		return marshalCanonicalString(string(val))
	case IRInt:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case IRBool:
		return strconv.AppendBool(nil, bool(val)), nil
	case IRArray:
		return marshalCanonicalArray(val)
	case IRObject:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported literal for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string.
// Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// unescapeLineSeparators reverts encoding/json's \u2028 and \u2029 escapes.
// A sequence preceded by an odd run of backslashes is literal text and stays.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			string(data[i+2:i+5]) == "202" && (data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

func marshalCanonicalArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj IRObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeNode converts a tree into a literal object suitable for canonical
// marshaling. Types are encoded by their rendered name.
//
// Subquery bodies are encoded in full. Extension node kinds are encoded by
// their Go type name plus children.
func EncodeNode(n Node) IRObject {
	obj := IRObject{
		"kind": IRString(KindOf(n)),
		"type": IRString(n.Type().String()),
	}
	switch node := n.(type) {
	case *Operator:
		obj["name"] = IRString(node.Name())
		obj["type_args"] = encodeTypes(node.typeArgs)
		obj["operands"] = encodeNodes(node.operands)
	case *Constant:
		obj["value"] = node.value
	case *Parameter:
		obj["name"] = IRString(node.name)
	case *Lambda:
		params := make(IRArray, len(node.params))
		for i, p := range node.params {
			params[i] = EncodeNode(p)
		}
		obj["params"] = params
		obj["body"] = EncodeNode(node.body)
	case *Member:
		obj["field"] = IRString(node.field.Name)
		obj["instance"] = EncodeNode(node.instance)
	case *Subquery:
		obj["name"] = IRString(node.model.Name)
		obj["body"] = EncodeNode(node.model.Body)
	case *InjectParameters:
		params := make(IRArray, len(node.params))
		for i, p := range node.params {
			params[i] = EncodeNode(p)
		}
		obj["params"] = params
		obj["values"] = encodeNodes(node.values)
		obj["query"] = EncodeNode(node.query)
	default:
		obj["children"] = encodeNodes(n.Children())
	}
	return obj
}

func encodeNodes(nodes []Node) IRArray {
	out := make(IRArray, len(nodes))
	for i, c := range nodes {
		out[i] = EncodeNode(c)
	}
	return out
}

func encodeTypes(types []*Type) IRArray {
	out := make(IRArray, len(types))
	for i, t := range types {
		out[i] = IRString(t.String())
	}
	return out
}

// MarshalNode produces the canonical JSON encoding of a tree.
func MarshalNode(n Node) ([]byte, error) {
	return marshalCanonical(EncodeNode(n))
}
