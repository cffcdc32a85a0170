package condition

import "fmt"

// Error describes an invalid condition. Path locates the offending node,
// e.g. "all[1].not".
type Error struct {
	Path    string
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("condition: %s", e.Message)
	}
	return fmt.Sprintf("condition %s: %s", e.Path, e.Message)
}

func newError(path, format string, args ...any) *Error {
	return &Error{Path: path, Message: fmt.Sprintf(format, args...)}
}

func childPath(path string, t Type, i int) string {
	seg := fmt.Sprintf("%s[%d]", t, i)
	if t == TypeNot {
		seg = string(t)
	}
	if path == "" {
		return seg
	}
	return path + "." + seg
}
