// internal/rules/coercion.go
package rules

import (
	"strconv"

	"github.com/spf13/cast"

	"github.com/solatis/smartlist/internal/types"
)

/*
 * Type coercion for rule evaluation.
 *
 * Catalog values arrive from three places: media entry structs (int64 sizes,
 * float64 mtimes), metadata providers (ints, strings, nil) and decoded JSON
 * rule values (float64, string). Ordering and range operators compare them
 * as float64 after light coercion.
 *
 * Numeric-looking strings: ASCII digits with at most one decimal point
 * ("42", "3.5", ".5", "7."). Signs, exponents and whitespace are not numeric
 * for rule purposes, so "-1" or " 3" fail closed.
 *
 * Booleans are never numbers here even though cast would map them to 0/1.
 */

// looksNumeric reports whether s is a run of digits with at most one '.'.
func looksNumeric(s string) bool {
	digits := 0
	dots := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// toNumber converts v to float64 when it is a native number or a numeric-looking string.
// Returns false for nil, booleans, non-numeric strings and every other type.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case float64:
		return n, true
	case string:
		if !looksNumeric(n) {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isNativeNumber reports whether v is a numeric Go value (not a string, not a bool).
func isNativeNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// numericPair coerces both operands for ordering operators.
func numericPair(a, b any) (float64, float64, bool) {
	na, oka := toNumber(a)
	nb, okb := toNumber(b)
	return na, nb, oka && okb
}

// coerceEpoch interprets v as epoch seconds.
// Values at or below MinPlausibleEpoch (years, durations, ratings) are rejected.
func coerceEpoch(v any) (float64, bool) {
	f, ok := toNumber(v)
	if !ok || f <= types.MinPlausibleEpoch {
		return 0, false
	}
	return f, true
}

// ToNumber exposes the rule engine's numeric coercion to callers building
// derived fields (age_days, filesize_mb) so both sides agree on what a number is.
func ToNumber(v any) (float64, bool) {
	return toNumber(v)
}
