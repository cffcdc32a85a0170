package condition

import (
	"slices"

	"sta-hq/verdict/pkg/envelope"
)

// Comparison is one simple sub-condition of a tree.
type Comparison struct {
	Field    string
	Operator Operator
	Value    envelope.Value
}

// Comparisons returns the simple sub-conditions of node in depth-first
// order.
func Comparisons(node *Node) []Comparison {
	var out []Comparison
	walk(node, func(n *Node) {
		if n.Type == TypeSimple && n.Field != "" {
			out = append(out, Comparison{Field: n.Field, Operator: n.Operator, Value: n.Value})
		}
	})
	return out
}

// Matchable reports whether c can hold for some field value of kind k.
// A false result means the comparison never matches such a field.
func (c Comparison) Matchable(k envelope.Kind) bool {
	switch c.Operator {
	case OperatorEqual, OperatorNotEqual:
		return k == c.Value.Kind()
	case OperatorLessThan, OperatorLessEqual, OperatorGreaterThan, OperatorGreaterEqual:
		return k == envelope.KindNumber
	case OperatorIn, OperatorNotIn:
		return k == envelope.KindString
	case OperatorContains:
		return k == envelope.KindString || k == envelope.KindStringSet
	default:
		return false
	}
}

// Fields returns the sorted, de-duplicated field names referenced by node.
func Fields(node *Node) []string {
	var names []string
	for _, c := range Comparisons(node) {
		names = append(names, c.Field)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		walk(c, visit)
	}
}
