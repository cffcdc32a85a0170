package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

//go:embed rulepack.schema.json
var packSchemaSource []byte

const packSchemaURL = "https://schemas.sta-hq.dev/verdict/rulepack.schema.json"

var packSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(packSchemaURL, bytes.NewReader(packSchemaSource)); err != nil {
		return nil, fmt.Errorf("rule pack schema load failed: %w", err)
	}
	schema, err := c.Compile(packSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("rule pack schema compile failed: %w", err)
	}
	return schema, nil
})

// Document is one rule pack file. A pack may be split over several
// documents in a directory.
type Document struct {
	Pack       *PackInfo                   `yaml:"pack,omitempty"`
	Envelope   *EnvelopeSection            `yaml:"envelope,omitempty"`
	Signals    []envelope.SignalDefinition `yaml:"signals,omitempty"`
	Thresholds []escalation.Breakpoint     `yaml:"thresholds,omitempty"`
	Rules      []RuleDocument              `yaml:"rules,omitempty"`

	hasThresholds bool
}

// EnvelopeSection declares the pack's stable identifiers and their kinds.
type EnvelopeSection struct {
	StableIdentifiers map[string]envelope.Kind `yaml:"stable_identifiers"`
}

// RuleDocument is the declarative form of a rule.
type RuleDocument struct {
	RuleID             string `yaml:"rule_id"`
	SignalID           string `yaml:"signal_id"`
	ViolationType      string `yaml:"violation_type"`
	EscalationLevelMin string `yaml:"escalation_level_min"`
	Condition          any    `yaml:"condition,omitempty"`
	Description        string `yaml:"description,omitempty"`
	Deprecated         bool   `yaml:"deprecated,omitempty"`
}

// HasThresholds reports whether the document declared a thresholds
// section, even an empty one.
func (d *Document) HasThresholds() bool {
	return d.hasThresholds || len(d.Thresholds) > 0
}

// ParseDocument validates data against the rule pack schema and decodes it.
// Both YAML and JSON documents are accepted.
func ParseDocument(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if raw == nil {
		return nil, errors.New("document is empty")
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if m, ok := raw.(map[string]any); ok {
		_, doc.hasThresholds = m["thresholds"]
	}
	return &doc, nil
}

// validateSchema checks the generic decoded document against the embedded
// JSON Schema. The value is round-tripped through encoding/json so that the
// validator sees JSON types.
func validateSchema(raw any) error {
	schema, err := packSchema()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("document is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("document is not representable as JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// Rule converts the declarative rule into a Rule. The condition is built
// but not validated; Builder.Register validates it.
func (rd *RuleDocument) Rule() (Rule, error) {
	level, err := escalation.ParseLevel(rd.EscalationLevelMin)
	if err != nil {
		return Rule{}, &InvalidRuleError{
			RuleID:  rd.RuleID,
			Field:   "escalation_level_min",
			Message: "unknown escalation level",
			Cause:   err,
		}
	}

	cond, err := condition.Build(rd.Condition)
	if err != nil {
		return Rule{}, &InvalidRuleError{
			RuleID:  rd.RuleID,
			Field:   "condition",
			Message: "invalid condition",
			Cause:   err,
		}
	}

	return Rule{
		ID:                 rd.RuleID,
		SignalID:           rd.SignalID,
		Condition:          cond,
		ViolationType:      rd.ViolationType,
		EscalationLevelMin: level,
		Description:        rd.Description,
		Deprecated:         rd.Deprecated,
	}, nil
}
