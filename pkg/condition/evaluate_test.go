package condition

import (
	"testing"

	"sta-hq/verdict/pkg/envelope"
)

func testFields() envelope.Map {
	return envelope.Map{
		"delta":      envelope.Number(2500),
		"entity_id":  envelope.String("ACME-01"),
		"restated":   envelope.Bool(true),
		"statements": envelope.StringSet("BS", "EQ"),
	}
}

func TestEvaluate_Simple(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{name: "number equal", node: Simple("delta", OperatorEqual, envelope.Number(2500)), want: true},
		{name: "number not equal", node: Simple("delta", OperatorNotEqual, envelope.Number(1)), want: true},
		{name: "greater than", node: Simple("delta", OperatorGreaterThan, envelope.Number(1000)), want: true},
		{name: "greater equal boundary", node: Simple("delta", OperatorGreaterEqual, envelope.Number(2500)), want: true},
		{name: "less than", node: Simple("delta", OperatorLessThan, envelope.Number(1000)), want: false},
		{name: "less equal boundary", node: Simple("delta", OperatorLessEqual, envelope.Number(2500)), want: true},
		{name: "string equal", node: Simple("entity_id", OperatorEqual, envelope.String("ACME-01")), want: true},
		{name: "bool equal", node: Simple("restated", OperatorEqual, envelope.Bool(true)), want: true},
		{name: "in", node: Simple("entity_id", OperatorIn, envelope.StringSet("ACME-01", "ACME-02")), want: true},
		{name: "not in", node: Simple("entity_id", OperatorNotIn, envelope.StringSet("OTHER")), want: true},
		{name: "contains substring", node: Simple("entity_id", OperatorContains, envelope.String("ACME")), want: true},
		{name: "contains member", node: Simple("statements", OperatorContains, envelope.String("EQ")), want: true},
		{name: "contains missing member", node: Simple("statements", OperatorContains, envelope.String("IS")), want: false},
		{name: "set equal", node: Simple("statements", OperatorEqual, envelope.StringSet("EQ", "BS")), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.node, testFields()); got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.node, got, tt.want)
			}
		})
	}
}

func TestEvaluate_MissingFieldNeverMatches(t *testing.T) {
	for _, op := range Operators() {
		var value envelope.Value
		switch op {
		case OperatorIn, OperatorNotIn:
			value = envelope.StringSet("x")
		case OperatorContains:
			value = envelope.String("x")
		default:
			value = envelope.Number(0)
		}
		node := Simple("absent", op, value)
		if Evaluate(node, testFields()) {
			t.Errorf("Evaluate(%s) = true on missing field, want false", node)
		}
	}
}

func TestEvaluate_KindMismatchNeverMatches(t *testing.T) {
	tests := []*Node{
		Simple("entity_id", OperatorLessThan, envelope.Number(10)),
		Simple("delta", OperatorEqual, envelope.String("2500")),
		Simple("delta", OperatorNotEqual, envelope.String("2500")),
		Simple("delta", OperatorIn, envelope.StringSet("2500")),
		Simple("delta", OperatorNotIn, envelope.StringSet("1")),
		Simple("restated", OperatorContains, envelope.String("t")),
	}
	for _, node := range tests {
		if Evaluate(node, testFields()) {
			t.Errorf("Evaluate(%s) = true, want false", node)
		}
	}
}

func TestEvaluate_Logical(t *testing.T) {
	big := Simple("delta", OperatorGreaterThan, envelope.Number(1000))
	small := Simple("delta", OperatorLessThan, envelope.Number(10))
	missing := Simple("absent", OperatorEqual, envelope.Number(1))

	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{name: "all true", node: All(big, Simple("restated", OperatorEqual, envelope.Bool(true))), want: true},
		{name: "all with false", node: All(big, small), want: false},
		{name: "any", node: Any(small, big), want: true},
		{name: "any none", node: Any(small, missing), want: false},
		{name: "not", node: Not(small), want: true},
		{name: "not of missing field", node: Not(missing), want: true},
		{name: "nested", node: All(big, Not(Any(small, missing))), want: true},
		{name: "empty all", node: &Node{Type: TypeAll}, want: false},
		{name: "malformed not", node: &Node{Type: TypeNot, Children: []*Node{big, small}}, want: false},
		{name: "unknown type", node: &Node{Type: "xor"}, want: false},
		{name: "nil", node: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.node, testFields()); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_ReferentiallyTransparent(t *testing.T) {
	node := All(
		Simple("delta", OperatorGreaterThan, envelope.Number(1000)),
		Any(
			Simple("statements", OperatorContains, envelope.String("EQ")),
			Simple("absent", OperatorNotIn, envelope.StringSet("x")),
		),
	)
	fields := testFields()
	first := Evaluate(node, fields)
	for i := 0; i < 100; i++ {
		if got := Evaluate(node, fields); got != first {
			t.Fatalf("Evaluate() call %d = %v, first = %v", i, got, first)
		}
	}
}

func TestFields(t *testing.T) {
	node := All(
		Simple("delta", OperatorGreaterThan, envelope.Number(1)),
		Not(Any(
			Simple("entity_id", OperatorEqual, envelope.String("x")),
			Simple("delta", OperatorLessThan, envelope.Number(5)),
		)),
	)

	got := Fields(node)
	want := []string{"delta", "entity_id"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
	if Fields(nil) != nil {
		t.Error("Fields(nil) should be nil")
	}
}

func TestComparisons(t *testing.T) {
	node := Any(
		Simple("delta", OperatorGreaterThan, envelope.Number(1)),
		Not(Simple("entity_id", OperatorIn, envelope.StringSet("A"))),
	)

	got := Comparisons(node)
	if len(got) != 2 || got[0].Field != "delta" || got[1].Operator != OperatorIn {
		t.Fatalf("Comparisons() = %+v", got)
	}
	if Comparisons(nil) != nil {
		t.Error("Comparisons(nil) should be nil")
	}
}

func TestComparison_Matchable(t *testing.T) {
	tests := []struct {
		name string
		c    Comparison
		kind envelope.Kind
		want bool
	}{
		{"numeric on number", Comparison{"d", OperatorGreaterThan, envelope.Number(1)}, envelope.KindNumber, true},
		{"numeric on string", Comparison{"d", OperatorGreaterThan, envelope.Number(1)}, envelope.KindString, false},
		{"equal same kind", Comparison{"d", OperatorEqual, envelope.Bool(true)}, envelope.KindBool, true},
		{"equal other kind", Comparison{"d", OperatorEqual, envelope.String("1")}, envelope.KindNumber, false},
		{"not equal other kind", Comparison{"d", OperatorNotEqual, envelope.String("1")}, envelope.KindNumber, false},
		{"in on string", Comparison{"d", OperatorIn, envelope.StringSet("a")}, envelope.KindString, true},
		{"not_in on set", Comparison{"d", OperatorNotIn, envelope.StringSet("a")}, envelope.KindStringSet, false},
		{"contains on set", Comparison{"d", OperatorContains, envelope.String("a")}, envelope.KindStringSet, true},
		{"contains on bool", Comparison{"d", OperatorContains, envelope.String("a")}, envelope.KindBool, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Matchable(tt.kind); got != tt.want {
				t.Errorf("Matchable(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}
