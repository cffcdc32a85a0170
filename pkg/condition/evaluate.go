package condition

import (
	"sta-hq/verdict/pkg/envelope"
)

// Source provides field values by name. *envelope.Envelope and
// envelope.Map satisfy it.
type Source interface {
	Field(name string) (envelope.Value, bool)
}

// Evaluate reports whether node matches the fields in src. A nil node
// matches everything. Malformed nodes that Validate would reject do not
// match.
func Evaluate(node *Node, src Source) bool {
	if node == nil {
		return true
	}
	return match(node, src, 1)
}

func match(n *Node, src Source, depth int) bool {
	if n == nil || depth > MaxDepth {
		return false
	}

	switch n.Type {
	case TypeSimple:
		return matchSimple(n, src)

	case TypeAll:
		if len(n.Children) == 0 {
			return false
		}
		for _, child := range n.Children {
			// Short-circuit: if any child doesn't match, return false
			if !match(child, src, depth+1) {
				return false
			}
		}
		return true

	case TypeAny:
		for _, child := range n.Children {
			if match(child, src, depth+1) {
				return true
			}
		}
		return false

	case TypeNot:
		if len(n.Children) != 1 {
			return false
		}
		return !match(n.Children[0], src, depth+1)

	default:
		return false
	}
}

func matchSimple(n *Node, src Source) bool {
	actual, ok := src.Field(n.Field)
	if !ok {
		// Missing field never matches, including for != and not_in.
		return false
	}
	return evaluateOperator(n.Operator, actual, n.Value)
}
