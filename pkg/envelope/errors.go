package envelope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnvelope is the sentinel matched by every *InvalidEnvelopeError.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// InvalidEnvelopeError indicates an envelope that cannot be evaluated.
type InvalidEnvelopeError struct {
	EnvelopeID string
	Missing    []string // Stable identifiers that are absent or empty
	Field      string   // Offending field for decode failures
	Reason     string
}

// Error returns the error message.
func (e *InvalidEnvelopeError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid envelope")
	if e.EnvelopeID != "" {
		fmt.Fprintf(&sb, " %s", e.EnvelopeID)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&sb, ": missing stable identifiers: %s", strings.Join(e.Missing, ", "))
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": field %q", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	return sb.String()
}

// Is matches ErrInvalidEnvelope.
func (e *InvalidEnvelopeError) Is(target error) bool {
	return target == ErrInvalidEnvelope
}

// DecodeError wraps a failure to decode one line of a record stream.
type DecodeError struct {
	Line int
	Err  error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
