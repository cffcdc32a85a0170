// Package compat enforces additive-only evolution of rule packs.
//
// Check compares two revisions of a pack and reports every change that
// would break producers or consumers pinned to the older revision. Within
// a major version, stable identifiers, signal definitions and rules may
// only grow: fields can be added as optional, signals and rules can be
// added, floors can be raised and required fields can be relaxed to
// optional. Anything else is a Violation. A major version bump waives the
// structural checks; version ordering is always enforced.
//
// The Compatibility Guard runs at load time. The registry Reloader calls
// Check before swapping a new snapshot in, and "verdict check" exposes it
// on the command line.
package compat
