package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/querypipe/internal/ir"
)

// marshalValue converts a fixture row to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal rows are stored as equal bytes.
func marshalValue(v ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back to a literal.
// Numbers are decoded via json.Number to avoid float64 precision loss for
// values > 2^53.
func unmarshalValue(data string) (ir.IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	v, err := fromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func fromJSON(raw any) (ir.IRValue, error) {
	switch val := raw.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %s", val)
		}
		return ir.IRInt(n), nil
	case []any:
		arr := make(ir.IRArray, len(val))
		for i, e := range val {
			v, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case map[string]any:
		obj := make(ir.IRObject, len(val))
		for k, e := range val {
			v, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return ir.FromGo(val)
	}
}
