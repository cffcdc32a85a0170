/*
Package escalation implements the escalation levels and the escalation policy
that turns a structural risk score and a set of violations into a verdict.

Levels are totally ordered:

	none < advisory < board_review < critical

A Policy combines two independent components:

  - the score level, read from an ordered threshold table of
    (min_score, min_count) -> level breakpoints, first match wins;
  - the floor level, the highest escalation_level_min among the violations.

The final level is Max(score level, floor level). Rule floors can only raise a
verdict, never lower it, and a higher score or violation count never yields a
lower score level.

Thresholds are configuration. A Table built from no breakpoints always yields
LevelNone, so a registry without thresholds escalates on floors alone:

	table, err := escalation.NewTable([]escalation.Breakpoint{
		{MinScore: 0.9, Level: escalation.LevelCritical},
		{MinScore: 0.5, MinCount: 2, Level: escalation.LevelBoardReview},
	})
	if err != nil {
		return err
	}
	level := escalation.NewPolicy(table).Decide(0.6, violations)
*/
package escalation
