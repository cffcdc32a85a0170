package condition

import "sta-hq/verdict/pkg/envelope"

// MaxDepth bounds how deeply conditions may nest.
const MaxDepth = 16

// Validate checks that node is well formed: known node types and
// operators, literal kinds compatible with the operator, exactly one child
// under not, at least one child under all/any, and nesting no deeper than
// MaxDepth. A nil node is valid and always matches.
func Validate(node *Node) error {
	if node == nil {
		return nil
	}
	return validate(node, "", 1)
}

func validate(n *Node, path string, depth int) error {
	if n == nil {
		return newError(path, "nil condition")
	}
	if depth > MaxDepth {
		return newError(path, "nesting exceeds maximum depth %d", MaxDepth)
	}

	switch n.Type {
	case TypeSimple:
		return validateSimple(n, path)

	case TypeAll, TypeAny:
		if len(n.Children) == 0 {
			return newError(path, "%s requires at least one condition", n.Type)
		}

	case TypeNot:
		if len(n.Children) != 1 {
			return newError(path, "not requires exactly one condition, got %d", len(n.Children))
		}

	default:
		return newError(path, "unknown condition type %q", n.Type)
	}

	for i, child := range n.Children {
		if err := validate(child, childPath(path, n.Type, i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateSimple(n *Node, path string) error {
	if n.Field == "" {
		return newError(path, "field is required")
	}
	if len(n.Children) > 0 {
		return newError(path, "simple condition cannot have children")
	}
	if !n.Operator.IsValid() {
		return newError(path, "unknown operator %q", n.Operator)
	}
	if !n.Value.IsValid() {
		return newError(path, "value is required")
	}

	kind := n.Value.Kind()
	switch n.Operator {
	case OperatorLessThan, OperatorLessEqual, OperatorGreaterThan, OperatorGreaterEqual:
		if kind != envelope.KindNumber {
			return newError(path, "operator %s requires a number, got %s", n.Operator, kind)
		}
	case OperatorIn, OperatorNotIn:
		if kind != envelope.KindStringSet {
			return newError(path, "operator %s requires a list of strings, got %s", n.Operator, kind)
		}
		if n.Value.Len() == 0 {
			return newError(path, "operator %s requires a non-empty list", n.Operator)
		}
	case OperatorContains:
		if kind != envelope.KindString {
			return newError(path, "operator contains requires a string, got %s", kind)
		}
	}
	return nil
}
