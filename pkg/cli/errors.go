package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitFindings = 3
)

// ConfigError represents an error in configuration or flags.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitError carries a specific exit code. It is used when a command ran
// correctly but its outcome should fail the process, for example an
// incompatible registry change.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned from a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitUsage
	}
	return ExitFailure
}
