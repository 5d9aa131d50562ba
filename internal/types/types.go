// Package types provides domain models shared across smartlist components.
//
// Zero-dependency design: types.go and errors.go use only the standard library
// so that the rule engine can be embedded without pulling in storage or
// transport deps. ID utilities in ids.go import uuid but are isolated.
package types

// UID is an opaque, stable identifier attached to rules and rule groups.
// Used only for editor tree identity (drag/drop, undo/redo); never read by evaluation.
type UID string

// Time windows and unit conversions shared by the rule engine and evaluator.
const (
	// SecondsPerHour is the length of an hour for within_hours.
	SecondsPerHour = 3600

	// SecondsPerDay is the length of a day for within_days and age_days.
	SecondsPerDay = 86400

	// SecondsPerWeek is the length of a week for within_weeks.
	SecondsPerWeek = 7 * SecondsPerDay

	// SecondsPerMonth approximates a month as 30.44 days for within_months.
	// Intentional approximation: not calendar-accurate.
	SecondsPerMonth = 2_629_800

	// MinPlausibleEpoch is the smallest value accepted as an epoch timestamp (~1970-04-26).
	// Smaller values (years, durations, ratings) are treated as absent.
	MinPlausibleEpoch = 10_000_000

	// BytesPerMegabyte converts file sizes for the filesize_mb derived field.
	BytesPerMegabyte = 1024 * 1024
)

// Match values for rule groups.
const (
	MatchAll = "all"
	MatchAny = "any"
)
