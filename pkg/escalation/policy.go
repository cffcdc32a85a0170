package escalation

// Violation is the outcome of one rule matching one envelope.
// EscalationLevelMin is copied from the rule when the violation is produced.
type Violation struct {
	RuleID             string `json:"rule_id"`
	ViolationType      string `json:"violation_type"`
	EscalationLevelMin Level  `json:"escalation_level_min"`
}

// Decision holds both components of a verdict alongside the final level.
type Decision struct {
	ScoreLevel Level `json:"score_level"`
	FloorLevel Level `json:"floor_level"`
	Level      Level `json:"escalation"`
}

// Policy decides escalation levels from a threshold table.
// It holds no mutable state and is safe for concurrent use.
type Policy struct {
	table *Table
}

// NewPolicy creates a policy over table. A nil table behaves as EmptyTable.
func NewPolicy(table *Table) *Policy {
	if table == nil {
		table = EmptyTable()
	}
	return &Policy{table: table}
}

// Table returns the policy's threshold table.
func (p *Policy) Table() *Table {
	return p.table
}

// Decide returns the final escalation level for score and violations.
func (p *Policy) Decide(score float64, violations []Violation) Level {
	return p.Explain(score, violations).Level
}

// Explain returns the score level, the floor level and their maximum.
func (p *Policy) Explain(score float64, violations []Violation) Decision {
	scoreLevel := p.table.Level(score, len(violations))
	floor := Floor(violations)
	return Decision{
		ScoreLevel: scoreLevel,
		FloorLevel: floor,
		Level:      Max(scoreLevel, floor),
	}
}

// Floor returns the highest EscalationLevelMin among violations.
func Floor(violations []Violation) Level {
	floor := LevelNone
	for _, v := range violations {
		floor = Max(floor, v.EscalationLevelMin)
	}
	return floor
}
