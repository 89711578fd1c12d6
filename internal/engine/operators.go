package engine

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/querypipe/internal/ir"
	"github.com/roach88/querypipe/internal/queryir"
)

type operatorFunc func(ev *evaluation, op *ir.Operator, e *env) (any, error)

// operators maps catalogue operator names to their evaluation semantics.
// CRITICAL: Filled once in init (the functions recurse into eval, which
// reads this map) and read-only afterwards.
var operators map[string]operatorFunc

func init() {
	operators = map[string]operatorFunc{
		queryir.OpWhere:             evalWhere,
		queryir.OpSelect:            evalSelect,
		queryir.OpOrderBy:           evalOrderBy(false),
		queryir.OpOrderByDescending: evalOrderBy(true),
		queryir.OpThenBy:            evalThenBy(false),
		queryir.OpThenByDescending:  evalThenBy(true),
		queryir.OpTake:              evalTake,
		queryir.OpJoin:              evalJoin,
		queryir.OpToQueryable:       evalPassThrough,
		queryir.OpAsEnumerable:      evalPassThrough,
		queryir.OpInjectParameters:  evalInjectParameters,
		queryir.OpGetParameterValue: evalGetParameterValue,
		queryir.OpSetParameter:      evalSetParameter,
		queryir.OpBlock:             evalBlock,
		queryir.OpNewArray:          evalNewArray,
		queryir.OpIndex:             evalIndex,
		queryir.OpEqual:             evalEqual,
	}
}

func evalWhere(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	src, err := ev.sequenceOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	pred, err := ev.closureOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	return Sequence(func(yield func(ir.IRValue, error) bool) {
		for row, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := callValue(pred, row)
			if err != nil {
				yield(nil, err)
				return
			}
			keep, ok := v.(ir.IRBool)
			if !ok {
				yield(nil, evaluationError(op.Name(), "predicate returned %v", ir.GoValue(v)))
				return
			}
			if bool(keep) && !yield(row, nil) {
				return
			}
		}
	}), nil
}

func evalSelect(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	src, err := ev.sequenceOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	selector, err := ev.closureOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	return Sequence(func(yield func(ir.IRValue, error) bool) {
		for row, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := callValue(selector, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}), nil
}

// ordered is a sequence sorted by a chain of keys. ThenBy extends the chain
// of its source instead of re-sorting, so later keys only break ties.
type ordered struct {
	op     string
	source Sequence
	keys   []sortKey
}

type sortKey struct {
	fn         closure
	descending bool
}

func (o *ordered) all() Sequence {
	return func(yield func(ir.IRValue, error) bool) {
		var rows []ir.IRValue
		var keys [][]ir.IRValue
		for row, err := range o.source {
			if err != nil {
				yield(nil, err)
				return
			}
			rowKeys := make([]ir.IRValue, len(o.keys))
			for i, k := range o.keys {
				kv, err := callValue(k.fn, row)
				if err != nil {
					yield(nil, err)
					return
				}
				rowKeys[i] = kv
			}
			rows = append(rows, row)
			keys = append(keys, rowKeys)
		}

		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		var cmpErr error
		slices.SortStableFunc(idx, func(a, b int) int {
			for j, k := range o.keys {
				c, err := compareValues(keys[a][j], keys[b][j])
				if err != nil {
					if cmpErr == nil {
						cmpErr = evaluationError(o.op, "%v", err)
					}
					return 0
				}
				if k.descending {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
		if cmpErr != nil {
			yield(nil, cmpErr)
			return
		}
		for _, i := range idx {
			if !yield(rows[i], nil) {
				return
			}
		}
	}
}

// compareValues orders literals: null first, then by value within a kind.
// Strings compare ordinally.
func compareValues(a, b ir.IRValue) (int, error) {
	_, aNull := a.(ir.IRNull)
	_, bNull := b.(ir.IRNull)
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return -1, nil
	case bNull:
		return 1, nil
	}
	switch av := a.(type) {
	case ir.IRInt:
		if bv, ok := b.(ir.IRInt); ok {
			return cmp.Compare(av, bv), nil
		}
	case ir.IRString:
		if bv, ok := b.(ir.IRString); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case ir.IRBool:
		if bv, ok := b.(ir.IRBool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !bool(av):
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, evaluationError("", "values %v and %v are not comparable", ir.GoValue(a), ir.GoValue(b))
}

func evalOrderBy(descending bool) operatorFunc {
	return func(ev *evaluation, op *ir.Operator, e *env) (any, error) {
		src, err := ev.sequenceOperand(op, 0, e)
		if err != nil {
			return nil, err
		}
		key, err := ev.closureOperand(op, 1, e)
		if err != nil {
			return nil, err
		}
		return &ordered{op: op.Name(), source: src, keys: []sortKey{{fn: key, descending: descending}}}, nil
	}
}

func evalThenBy(descending bool) operatorFunc {
	return func(ev *evaluation, op *ir.Operator, e *env) (any, error) {
		v, err := ev.operand(op, 0, e)
		if err != nil {
			return nil, err
		}
		src, ok := v.(*ordered)
		if !ok {
			return nil, evaluationError(op.Name(), "source is not ordered")
		}
		key, err := ev.closureOperand(op, 1, e)
		if err != nil {
			return nil, err
		}
		keys := append(slices.Clone(src.keys), sortKey{fn: key, descending: descending})
		return &ordered{op: op.Name(), source: src.source, keys: keys}, nil
	}
}

func evalTake(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	src, err := ev.sequenceOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	v, err := ev.valueOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	count, ok := v.(ir.IRInt)
	if !ok {
		return nil, evaluationError(op.Name(), "count %v is not an integer", ir.GoValue(v))
	}
	return Sequence(func(yield func(ir.IRValue, error) bool) {
		if count <= 0 {
			return
		}
		taken := ir.IRInt(0)
		for row, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
			taken++
			if taken >= count {
				return
			}
		}
	}), nil
}

// evalJoin is an inner equi-join. Outer order is preserved, matches for one
// outer row follow inner order, and null keys never match.
func evalJoin(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	outer, err := ev.sequenceOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	inner, err := ev.sequenceOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	fns := make([]closure, 3)
	for i := range fns {
		if fns[i], err = ev.closureOperand(op, 2+i, e); err != nil {
			return nil, err
		}
	}
	outerKey, innerKey, result := fns[0], fns[1], fns[2]

	return Sequence(func(yield func(ir.IRValue, error) bool) {
		lookup := make(map[string][]ir.IRValue)
		for row, err := range inner {
			if err != nil {
				yield(nil, err)
				return
			}
			key, ok, err := joinKey(innerKey, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok {
				lookup[key] = append(lookup[key], row)
			}
		}

		for row, err := range outer {
			if err != nil {
				yield(nil, err)
				return
			}
			key, ok, err := joinKey(outerKey, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				continue
			}
			for _, match := range lookup[key] {
				v, err := callValue(result, row, match)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(v, nil) {
					return
				}
			}
		}
	}), nil
}

func joinKey(fn closure, row ir.IRValue) (string, bool, error) {
	kv, err := callValue(fn, row)
	if err != nil {
		return "", false, err
	}
	if _, null := kv.(ir.IRNull); null {
		return "", false, nil
	}
	data, err := ir.MarshalCanonical(kv)
	if err != nil {
		return "", false, evaluationError(queryir.OpJoin, "key: %v", err)
	}
	return string(data), true, nil
}

func evalPassThrough(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	return ev.sequenceOperand(op, 0, e)
}

// evalInjectParameters calls the plan closure with the name and value
// arrays when the result is first iterated. The closure installs every value
// before it evaluates the query, so sibling plans that declare the same name
// each read their own value as long as they are drained one after the other.
func evalInjectParameters(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	if _, err := ev.contextOperand(op, 0, e); err != nil {
		return nil, err
	}
	plan, err := ev.closureOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	names, err := ev.valueOperand(op, 2, e)
	if err != nil {
		return nil, err
	}
	values, err := ev.valueOperand(op, 3, e)
	if err != nil {
		return nil, err
	}
	nameArr, ok1 := names.(ir.IRArray)
	valueArr, ok2 := values.(ir.IRArray)
	if !ok1 || !ok2 || len(nameArr) != len(valueArr) {
		return nil, evaluationError(op.Name(), "names and values must be arrays of equal length")
	}

	return Sequence(func(yield func(ir.IRValue, error) bool) {
		ev.logger.Debug("injecting parameters", "count", len(nameArr))
		res, err := plan([]any{nameArr, valueArr})
		if err != nil {
			yield(nil, err)
			return
		}
		seq, err := asSequence(op.Name(), res)
		if err != nil {
			yield(nil, err)
			return
		}
		for row, err := range seq {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}), nil
}

func evalGetParameterValue(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	qc, err := ev.contextOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	name, err := ev.valueOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	s, ok := name.(ir.IRString)
	if !ok {
		return nil, evaluationError(op.Name(), "parameter name %v is not a string", ir.GoValue(name))
	}
	t := op.Type()
	v, err := qc.Lookup(string(s), t)
	if err != nil {
		return nil, err
	}
	if ir.IsSequence(t) {
		return ev.rows(ir.ElementType(t), v)
	}
	return v, nil
}

func evalSetParameter(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	qc, err := ev.contextOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	name, err := ev.valueOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	s, ok := name.(ir.IRString)
	if !ok {
		return nil, evaluationError(op.Name(), "parameter name %v is not a string", ir.GoValue(name))
	}
	v, err := ev.valueOperand(op, 2, e)
	if err != nil {
		return nil, err
	}
	qc.SetParameter(string(s), v)
	return ir.IRNull{}, nil
}

func evalBlock(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	var last any
	for i := range op.NumOperands() {
		v, err := ev.operand(op, i, e)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func evalNewArray(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	arr := make(ir.IRArray, op.NumOperands())
	for i := range arr {
		v, err := ev.valueOperand(op, i, e)
		if err != nil {
			return nil, err
		}
		arr[i] = v
	}
	return arr, nil
}

func evalIndex(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	v, err := ev.valueOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, evaluationError(op.Name(), "value %v is not an array", ir.GoValue(v))
	}
	iv, err := ev.valueOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	i, ok := iv.(ir.IRInt)
	if !ok || i < 0 || int(i) >= len(arr) {
		return nil, evaluationError(op.Name(), "index %v out of range [0, %d)", ir.GoValue(iv), len(arr))
	}
	return arr[i], nil
}

func evalEqual(ev *evaluation, op *ir.Operator, e *env) (any, error) {
	a, err := ev.valueOperand(op, 0, e)
	if err != nil {
		return nil, err
	}
	b, err := ev.valueOperand(op, 1, e)
	if err != nil {
		return nil, err
	}
	return ir.IRBool(ir.EqualValues(a, b)), nil
}
