package escalation

import (
	"fmt"
	"strings"
)

// Level is an escalation level. The zero value is LevelNone.
type Level int

const (
	LevelNone Level = iota
	LevelAdvisory
	LevelBoardReview
	LevelCritical
)

var levelNames = [...]string{
	LevelNone:        "none",
	LevelAdvisory:    "advisory",
	LevelBoardReview: "board_review",
	LevelCritical:    "critical",
}

// Levels returns all levels in ascending order.
func Levels() []Level {
	return []Level{LevelNone, LevelAdvisory, LevelBoardReview, LevelCritical}
}

// IsValid reports whether l is one of the four defined levels.
func (l Level) IsValid() bool {
	return l >= LevelNone && l <= LevelCritical
}

// String returns the canonical name of the level.
func (l Level) String() string {
	if !l.IsValid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a canonical level name. Matching is case-insensitive and
// accepts "-" or " " in place of "_".
func ParseLevel(s string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for i, name := range levelNames {
		if name == normalized {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown escalation level %q (expected one of none, advisory, board_review, critical)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid escalation level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Max returns the highest of the given levels, or LevelNone if none are given.
func Max(levels ...Level) Level {
	result := LevelNone
	for _, l := range levels {
		if l > result {
			result = l
		}
	}
	return result
}
