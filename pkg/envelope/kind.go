package envelope

import (
	"fmt"
	"strings"
)

// Kind is the kind of a payload value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindStringSet
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindString:    "string",
	KindNumber:    "number",
	KindBool:      "boolean",
	KindStringSet: "string_set",
}

// String returns the kind name used in rule packs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name. "bool" and "set" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return KindString, nil
	case "number":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBool, nil
	case "string_set", "set":
		return KindStringSet, nil
	default:
		return KindInvalid, fmt.Errorf("unknown field kind %q (expected string, number, boolean or string_set)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindInvalid {
		return nil, fmt.Errorf("cannot marshal invalid kind")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
