package compat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompatible is matched by errors.Is for every *IncompatibleError.
var ErrIncompatible = errors.New("incompatible rule pack revision")

// IncompatibleError is returned by Report.Err when a report has violations.
type IncompatibleError struct {
	Report Report
}

// Error implements the error interface.
func (e *IncompatibleError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "incompatible rule pack revision %s -> %s: %d violation(s)",
		e.Report.OldVersion, e.Report.NewVersion, len(e.Report.Violations))
	for _, v := range e.Report.Violations {
		sb.WriteString("; ")
		sb.WriteString(v.String())
	}
	return sb.String()
}

// Is reports whether target is ErrIncompatible.
func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}
