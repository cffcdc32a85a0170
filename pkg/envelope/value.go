package envelope

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// Value is an immutable payload value. The zero Value has KindInvalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	set  []string
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// StringSet returns a set value. Duplicates are removed and members sorted.
func StringSet(members ...string) Value {
	set := slices.Clone(members)
	slices.Sort(set)
	return Value{kind: KindStringSet, set: slices.Compact(set)}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the number held by v.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Boolean returns the boolean held by v.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Members returns a copy of the set members held by v, in sorted order.
func (v Value) Members() ([]string, bool) {
	if v.kind != KindStringSet {
		return nil, false
	}
	return slices.Clone(v.set), true
}

// Has reports whether v is a set containing member.
func (v Value) Has(member string) bool {
	if v.kind != KindStringSet {
		return false
	}
	_, found := slices.BinarySearch(v.set, member)
	return found
}

// Len returns the number of set members, or 0 for other kinds.
func (v Value) Len() int {
	return len(v.set)
}

// Equal reports whether v and other have the same kind and value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindStringSet:
		return slices.Equal(v.set, other.set)
	default:
		return true
	}
}

// Interface returns v as a plain Go value: string, float64, bool or []string.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindStringSet:
		return slices.Clone(v.set)
	default:
		return nil
	}
}

// String renders v for logs and reports.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStringSet:
		quoted := make([]string, len(v.set))
		for i, m := range v.set {
			quoted[i] = strconv.Quote(m)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindStringSet && v.set == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Interface())
}
