package condition

import (
	"fmt"
	"strings"

	"sta-hq/verdict/pkg/envelope"
)

// Type is the type of a condition node.
type Type string

const (
	TypeSimple Type = "simple" // field op value
	TypeAll    Type = "all"    // AND of children
	TypeAny    Type = "any"    // OR of children
	TypeNot    Type = "not"    // NOT of its single child
)

// Operator is a comparison operator used by simple conditions.
type Operator string

const (
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
	OperatorLessThan     Operator = "<"
	OperatorLessEqual    Operator = "<="
	OperatorGreaterThan  Operator = ">"
	OperatorGreaterEqual Operator = ">="
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"
	OperatorContains     Operator = "contains"
)

// Operators returns the closed operator set.
func Operators() []Operator {
	return []Operator{
		OperatorEqual, OperatorNotEqual,
		OperatorLessThan, OperatorLessEqual, OperatorGreaterThan, OperatorGreaterEqual,
		OperatorIn, OperatorNotIn, OperatorContains,
	}
}

// IsValid reports whether op belongs to the operator set.
func (op Operator) IsValid() bool {
	for _, known := range Operators() {
		if op == known {
			return true
		}
	}
	return false
}

// Node is a condition expression. Simple nodes use Field, Operator and
// Value; logical nodes use Children.
type Node struct {
	Type     Type
	Field    string
	Operator Operator
	Value    envelope.Value
	Children []*Node
}

// Simple returns a leaf comparing field to value.
func Simple(field string, op Operator, value envelope.Value) *Node {
	return &Node{Type: TypeSimple, Field: field, Operator: op, Value: value}
}

// All returns a conjunction.
func All(children ...*Node) *Node {
	return &Node{Type: TypeAll, Children: children}
}

// Any returns a disjunction.
func Any(children ...*Node) *Node {
	return &Node{Type: TypeAny, Children: children}
}

// Not returns the negation of child.
func Not(child *Node) *Node {
	return &Node{Type: TypeNot, Children: []*Node{child}}
}

// Clone returns a deep copy of n. Values are immutable and shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// IsSimple returns true if this is a simple comparison.
func (n *Node) IsSimple() bool {
	return n.Type == TypeSimple
}

// IsLogical returns true if this is a logical operator (all/any/not).
func (n *Node) IsLogical() bool {
	return n.Type == TypeAll || n.Type == TypeAny || n.Type == TypeNot
}

// String renders the condition in a compact prefix form, e.g.
// all(delta > 1000, not(statements contains "EQ")).
func (n *Node) String() string {
	if n == nil {
		return "true"
	}
	switch n.Type {
	case TypeSimple:
		return fmt.Sprintf("%s %s %s", n.Field, n.Operator, n.Value)
	case TypeAll, TypeAny, TypeNot:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", n.Type, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("unknown(%s)", n.Type)
	}
}
