// Package tracking owns the raw tracking data model of a match: the
// per-instant position samples of every tracked entity and the roster that
// describes who those entities are.
//
// Responsibilities: parsing the tabular match export (CSV) into Samples,
// validating that the required columns are present, and building the
// Roster used by presentation layers for display names.
// Key types: Sample, Match, Roster, Entity.
//
// No derived kinematics live here; see internal/kinematics.
package tracking
