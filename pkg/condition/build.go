package condition

import "sta-hq/verdict/pkg/envelope"

// Build transforms a decoded declarative condition into a Node. raw is the
// value produced by a YAML or JSON decoder:
//   - a map with field, operator and value is a simple condition
//   - a map with a single all, any or not key is a logical condition
//   - a list is an implicit all
//
// A nil raw value yields a nil Node, which matches every envelope. Build
// checks shape only; call Validate for operator and kind rules.
func Build(raw any) (*Node, error) {
	if raw == nil {
		return nil, nil
	}
	return build(raw, "")
}

func build(raw any, path string) (*Node, error) {
	switch v := raw.(type) {
	case map[string]any:
		return buildMap(v, path)
	case []any:
		return buildList(v, path)
	default:
		return nil, newError(path, "invalid condition type %T", raw)
	}
}

// buildMap builds a condition from a map.
func buildMap(m map[string]any, path string) (*Node, error) {
	for _, t := range []Type{TypeAll, TypeAny, TypeNot} {
		children, ok := m[string(t)]
		if !ok {
			continue
		}
		if len(m) != 1 {
			return nil, newError(path, "%s cannot be combined with other keys", t)
		}
		return buildLogical(t, children, path)
	}
	return buildSimple(m, path)
}

// buildSimple builds a simple comparison condition.
func buildSimple(m map[string]any, path string) (*Node, error) {
	for key := range m {
		switch key {
		case "field", "operator", "value":
		default:
			return nil, newError(path, "unknown key %q", key)
		}
	}

	field, ok := m["field"].(string)
	if !ok {
		return nil, newError(path, "missing or invalid 'field'")
	}
	op, ok := m["operator"].(string)
	if !ok {
		return nil, newError(path, "missing or invalid 'operator'")
	}
	rawValue, ok := m["value"]
	if !ok || rawValue == nil {
		return nil, newError(path, "missing 'value'")
	}
	value, err := envelope.ToValue(rawValue)
	if err != nil {
		return nil, newError(path, "invalid value: %v", err)
	}

	return Simple(field, Operator(op), value), nil
}

// buildLogical builds all/any/not. not accepts a single condition or a
// one-element list.
func buildLogical(t Type, children any, path string) (*Node, error) {
	var items []any
	switch v := children.(type) {
	case []any:
		items = v
	case map[string]any:
		if t != TypeNot {
			return nil, newError(path, "%s requires a list of conditions", t)
		}
		items = []any{v}
	default:
		return nil, newError(path, "%s requires a list of conditions, got %T", t, children)
	}

	node := &Node{Type: t, Children: make([]*Node, 0, len(items))}
	for i, item := range items {
		child, err := build(item, childPath(path, t, i))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// buildList builds an implicit AND of conditions from a list.
func buildList(items []any, path string) (*Node, error) {
	if len(items) == 0 {
		return nil, newError(path, "empty condition list")
	}
	if len(items) == 1 {
		return build(items[0], path)
	}
	return buildLogical(TypeAll, items, path)
}

// Encode returns the declarative form of node, the inverse of Build.
func Encode(node *Node) any {
	if node == nil {
		return nil
	}
	switch node.Type {
	case TypeSimple:
		return map[string]any{
			"field":    node.Field,
			"operator": string(node.Operator),
			"value":    node.Value.Interface(),
		}
	case TypeNot:
		if len(node.Children) == 1 {
			return map[string]any{string(TypeNot): Encode(node.Children[0])}
		}
	}
	children := make([]any, len(node.Children))
	for i, c := range node.Children {
		children[i] = Encode(c)
	}
	return map[string]any{string(node.Type): children}
}
