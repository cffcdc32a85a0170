// Package condition implements the deterministic condition language used by
// rules.
//
// A condition is a small tagged tree. Leaves compare one envelope field to a
// literal; interior nodes combine children:
//
//	all:                    # every child must match
//	  - field: delta
//	    operator: ">"
//	    value: 1000
//	  - not:
//	      field: statements
//	      operator: contains
//	      value: EQ
//
// Supported operators are ==, !=, <, <=, >, >=, in, not_in and contains.
//
// Evaluation is total. A leaf whose field is absent from the envelope does
// not match, whatever its operator, and a leaf whose field has an
// incompatible kind does not match either. Evaluate never returns an error
// and never depends on anything but its two arguments.
package condition
