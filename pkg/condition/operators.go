package condition

import (
	"strings"

	"sta-hq/verdict/pkg/envelope"
)

// evaluateOperator compares an envelope value against a literal. Kind
// mismatches never match.
func evaluateOperator(op Operator, actual, expected envelope.Value) bool {
	switch op {
	case OperatorEqual:
		return actual.Equal(expected)

	case OperatorNotEqual:
		if actual.Kind() != expected.Kind() {
			return false
		}
		return !actual.Equal(expected)

	case OperatorLessThan:
		a, e, ok := numeric(actual, expected)
		return ok && a < e

	case OperatorLessEqual:
		a, e, ok := numeric(actual, expected)
		return ok && a <= e

	case OperatorGreaterThan:
		a, e, ok := numeric(actual, expected)
		return ok && a > e

	case OperatorGreaterEqual:
		a, e, ok := numeric(actual, expected)
		return ok && a >= e

	case OperatorIn:
		s, ok := actual.Str()
		return ok && expected.Has(s)

	case OperatorNotIn:
		s, ok := actual.Str()
		if !ok || expected.Kind() != envelope.KindStringSet {
			return false
		}
		return !expected.Has(s)

	case OperatorContains:
		return evaluateContains(actual, expected)

	default:
		return false
	}
}

// evaluateContains checks substring containment for strings and
// membership for string sets.
func evaluateContains(actual, expected envelope.Value) bool {
	needle, ok := expected.Str()
	if !ok {
		return false
	}
	if s, ok := actual.Str(); ok {
		return strings.Contains(s, needle)
	}
	return actual.Has(needle)
}

func numeric(actual, expected envelope.Value) (float64, float64, bool) {
	a, ok := actual.Num()
	if !ok {
		return 0, 0, false
	}
	e, ok := expected.Num()
	if !ok {
		return 0, 0, false
	}
	return a, e, true
}
