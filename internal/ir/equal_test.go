package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) Node {
	t.Helper()
	c := NewParameter("c", testCustomer)
	age, err := NewMember(c, "Age")
	require.NoError(t, err)
	op, err := InferOperator(identityDef, NewLambda(age, c))
	require.NoError(t, err)
	return NewLambda(op, NewParameter("limit", Int64))
}

func TestEqualStructural(t *testing.T) {
	a := buildTree(t)
	b := buildTree(t)

	assert.NotSame(t, a, b)
	assert.True(t, Equal(a, b))
	assert.True(t, Equal(a, a))
}

func TestEqualDistinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b Node
	}{
		{"constant value", MustConstant(Int64, IRInt(1)), MustConstant(Int64, IRInt(2))},
		{"constant type", MustConstant(Optional(Int64), IRInt(1)), MustConstant(Int64, IRInt(1))},
		{"parameter name", NewParameter("a", Int64), NewParameter("b", Int64)},
		{"kind", NewParameter("a", Int64), MustConstant(Int64, IRInt(1))},
		{"subquery name",
			NewSubquery(&QueryModel{Name: "a", Body: MustConstant(Int64, IRInt(1))}),
			NewSubquery(&QueryModel{Name: "b", Body: MustConstant(Int64, IRInt(1))})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Equal(tt.a, tt.b))
		})
	}
}

func TestFormatIsStable(t *testing.T) {
	tree := buildTree(t)

	assert.Equal(t, "(limit) => Identity[func(Customer) int64]((c) => c.Age)", Format(tree))
	assert.Equal(t, Format(tree), Format(buildTree(t)))
}

func TestFormatValues(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{MustConstant(Optional(Int64), IRNull{}), "null:Optional[int64]"},
		{MustConstant(String, IRString(`say "hi"`)), `"say \"hi\"":string`},
		{MustConstant(Array(Int64), IRArray{IRInt(1), IRInt(2)}), "[1, 2]:Array[int64]"},
		{MustConstant(Any, IRObject{"b": IRInt(1), "a": IRBool(true)}), "{a: true, b: 1}:any"},
		{NewSubquery(&QueryModel{Name: "inner", Body: MustConstant(Queryable(Int64), IRString("N"))}), `Subquery<inner>{"N":Queryable[int64]}`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.node))
		})
	}
}
