package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a tree as a single line. The output is stable and is what
// golden files and plan output record.
//
//	Where[Customer]("Customers":Queryable[Customer], (c) => Equal(c.City, __city))
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch node := n.(type) {
	case *Operator:
		b.WriteString(node.Name())
		if len(node.typeArgs) > 0 {
			b.WriteByte('[')
			for i, t := range node.typeArgs {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(t.String())
			}
			b.WriteByte(']')
		}
		writeList(b, "(", node.operands, ")")
	case *Constant:
		writeValue(b, node.value)
		b.WriteByte(':')
		b.WriteString(node.typ.String())
	case *Parameter:
		b.WriteString(node.name)
	case *Lambda:
		b.WriteByte('(')
		for i, p := range node.params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.name)
		}
		b.WriteString(") => ")
		writeNode(b, node.body)
	case *Member:
		writeNode(b, node.instance)
		b.WriteByte('.')
		b.WriteString(node.field.Name)
	case *Subquery:
		fmt.Fprintf(b, "Subquery<%s>{", node.model.Name)
		writeNode(b, node.model.Body)
		b.WriteByte('}')
	case *InjectParameters:
		b.WriteString("Inject{")
		for i, p := range node.params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.name)
			b.WriteString(" = ")
			writeNode(b, node.values[i])
		}
		b.WriteString("; ")
		writeNode(b, node.query)
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%T", n)
		writeList(b, "(", n.Children(), ")")
	}
}

func writeList(b *strings.Builder, open string, nodes []Node, close string) {
	b.WriteString(open)
	for i, c := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		writeNode(b, c)
	}
	b.WriteString(close)
}

func writeValue(b *strings.Builder, v IRValue) {
	switch val := v.(type) {
	case IRNull:
		b.WriteString("null")
	case IRString:
		b.WriteString(strconv.Quote(string(val)))
	case IRInt:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		b.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	case IRObject:
		b.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			writeValue(b, val[k])
		}
		b.WriteByte('}')
	}
}
