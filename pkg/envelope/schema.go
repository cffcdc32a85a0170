package envelope

import (
	"fmt"
	"maps"
	"slices"
)

// SignalDefinition declares the payload schema of one signal.
type SignalDefinition struct {
	SignalID       string          `json:"signal_id" yaml:"signal_id"`
	SignalCategory string          `json:"signal_category" yaml:"signal_category"`
	SignalType     string          `json:"signal_type" yaml:"signal_type"`
	RequiredFields map[string]Kind `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	OptionalFields map[string]Kind `json:"optional_fields,omitempty" yaml:"optional_fields,omitempty"`
}

// FieldKind returns the declared kind of name and whether it is required.
func (d *SignalDefinition) FieldKind(name string) (kind Kind, required, declared bool) {
	if k, ok := d.RequiredFields[name]; ok {
		return k, true, true
	}
	if k, ok := d.OptionalFields[name]; ok {
		return k, false, true
	}
	return KindInvalid, false, false
}

// FieldNames returns every declared field name in sorted order.
func (d *SignalDefinition) FieldNames() []string {
	names := slices.Collect(maps.Keys(d.RequiredFields))
	for name := range d.OptionalFields {
		if _, dup := d.RequiredFields[name]; !dup {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Nonconformance describes one way an envelope departs from its definition.
type Nonconformance struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// String formats the nonconformance for lint output.
func (n Nonconformance) String() string {
	return fmt.Sprintf("%s: %s", n.Field, n.Problem)
}

// Conforms checks env against the definition. Undeclared payload fields
// are allowed. The result is sorted by field name and is empty when env
// conforms.
func (d *SignalDefinition) Conforms(env *Envelope) []Nonconformance {
	var problems []Nonconformance

	ids := env.Identifiers()
	if d.SignalCategory != "" && ids.SignalCategory != d.SignalCategory {
		problems = append(problems, Nonconformance{
			Field:   KeySignalCategory,
			Problem: fmt.Sprintf("expected %q, got %q", d.SignalCategory, ids.SignalCategory),
		})
	}
	if d.SignalType != "" && ids.SignalType != d.SignalType {
		problems = append(problems, Nonconformance{
			Field:   KeySignalType,
			Problem: fmt.Sprintf("expected %q, got %q", d.SignalType, ids.SignalType),
		})
	}

	for _, name := range d.FieldNames() {
		kind, required, _ := d.FieldKind(name)
		v, ok := env.Field(name)
		if !ok {
			if required {
				problems = append(problems, Nonconformance{Field: name, Problem: "required field missing"})
			}
			continue
		}
		if v.Kind() != kind {
			problems = append(problems, Nonconformance{
				Field:   name,
				Problem: fmt.Sprintf("expected %s, got %s", kind, v.Kind()),
			})
		}
	}

	slices.SortStableFunc(problems, func(a, b Nonconformance) int {
		switch {
		case a.Field < b.Field:
			return -1
		case a.Field > b.Field:
			return 1
		}
		return 0
	})
	return problems
}
