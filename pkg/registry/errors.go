package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrLoad is matched by every *LoadError.
	ErrLoad = errors.New("rule pack load failed")

	// ErrDuplicateRuleID is matched by every *DuplicateRuleIDError.
	ErrDuplicateRuleID = errors.New("duplicate rule_id")

	// ErrInvalidRule is matched by every *InvalidRuleError.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrBuilderUsed is returned when a Builder is changed after Build.
	ErrBuilderUsed = errors.New("registry builder already built")
)

// LoadError represents a failure to load a rule pack. Any LoadError aborts
// the whole load; no partial registry is produced.
type LoadError struct {
	// Path is the file or directory that failed to load
	Path string

	// Message describes the error
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule pack %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule pack %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// DuplicateRuleIDError is returned when a rule_id is registered twice.
type DuplicateRuleIDError struct {
	// RuleID is the rule identifier that was already registered
	RuleID string
}

// Error implements the error interface.
func (e *DuplicateRuleIDError) Error() string {
	return fmt.Sprintf("duplicate rule_id %q", e.RuleID)
}

// Is reports whether target is ErrDuplicateRuleID.
func (e *DuplicateRuleIDError) Is(target error) bool {
	return target == ErrDuplicateRuleID
}

// InvalidRuleError is returned when a rule cannot be registered.
type InvalidRuleError struct {
	// RuleID is the identifier of the offending rule (may be empty)
	RuleID string

	// Field names the rule attribute that failed validation (e.g., "condition")
	Field string

	// Message describes the validation error
	Message string

	// Cause is the underlying error, such as a condition validation error
	Cause error
}

// Error implements the error interface.
func (e *InvalidRuleError) Error() string {
	msg := fmt.Sprintf("invalid rule %q", e.RuleID)
	if e.Field != "" {
		msg += " at " + e.Field
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *InvalidRuleError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrInvalidRule.
func (e *InvalidRuleError) Is(target error) bool {
	return target == ErrInvalidRule
}
