package escalation

import (
	"fmt"
	"math"
	"sort"
)

// Breakpoint maps a minimum score and minimum violation count to a level.
type Breakpoint struct {
	MinScore float64 `json:"min_score" yaml:"min_score"`
	MinCount int     `json:"min_count" yaml:"min_count"`
	Level    Level   `json:"level" yaml:"level"`
}

// Matches reports whether score and count reach both minimums.
func (b Breakpoint) Matches(score float64, count int) bool {
	return score >= b.MinScore && count >= b.MinCount
}

// Table is an immutable, ordered threshold table.
// Breakpoints are held in descending level order; ties keep their declared order.
type Table struct {
	breakpoints []Breakpoint
}

// NewTable validates the breakpoints and returns a Table ordered for evaluation.
func NewTable(breakpoints []Breakpoint) (*Table, error) {
	ordered := make([]Breakpoint, len(breakpoints))
	copy(ordered, breakpoints)

	for i, b := range ordered {
		if math.IsNaN(b.MinScore) || math.IsInf(b.MinScore, 0) {
			return nil, &TableError{Index: i, Message: "min_score must be a finite number"}
		}
		if b.MinCount < 0 {
			return nil, &TableError{Index: i, Message: fmt.Sprintf("min_count must be non-negative, got %d", b.MinCount)}
		}
		if !b.Level.IsValid() {
			return nil, &TableError{Index: i, Message: fmt.Sprintf("invalid level %d", int(b.Level))}
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Level > ordered[j].Level
	})

	return &Table{breakpoints: ordered}, nil
}

// EmptyTable returns a table without breakpoints. Its score level is always LevelNone.
func EmptyTable() *Table {
	return &Table{}
}

// Level returns the score-derived level for score and violation count.
func (t *Table) Level(score float64, count int) Level {
	if t == nil {
		return LevelNone
	}
	for _, b := range t.breakpoints {
		if b.Matches(score, count) {
			return b.Level
		}
	}
	return LevelNone
}

// Breakpoints returns a copy of the breakpoints in evaluation order.
func (t *Table) Breakpoints() []Breakpoint {
	if t == nil {
		return nil
	}
	out := make([]Breakpoint, len(t.breakpoints))
	copy(out, t.breakpoints)
	return out
}

// Len returns the number of breakpoints.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.breakpoints)
}

// TableError indicates an invalid breakpoint.
type TableError struct {
	Index   int
	Message string
}

// Error returns the error message.
func (e *TableError) Error() string {
	return fmt.Sprintf("threshold %d: %s", e.Index, e.Message)
}
