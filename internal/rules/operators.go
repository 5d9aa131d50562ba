// internal/rules/operators.go
package rules

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/solatis/smartlist/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the rule operator table with type-aware comparison rules.
 * Every operator is total: type mismatches, nil operands and malformed
 * right-hand values return false instead of panicking or erroring.
 *
 * Operators:
 *   - ==/!=: equality with numeric tolerance across int/float kinds
 *   - >/>=/</<=: numeric only, numeric-looking strings coerced
 *   - between: inclusive numeric range over a two-element list
 *   - contains/icontains/not_contains/startswith/endswith: case-insensitive strings
 *   - in: membership in a list
 *   - regex: unanchored search (RE2 syntax)
 *   - has_tag: case-insensitive exact match in a tag list
 *   - within_hours/days/weeks/months: epoch timestamp inside a trailing window
 */

// Operator is a rule comparison operator, persisted by its symbol.
type Operator string

const (
	OpEq           Operator = "=="
	OpNeq          Operator = "!="
	OpGt           Operator = ">"
	OpGte          Operator = ">="
	OpLt           Operator = "<"
	OpLte          Operator = "<="
	OpContains     Operator = "contains"
	OpIContains    Operator = "icontains"
	OpNotContains  Operator = "not_contains"
	OpStartsWith   Operator = "startswith"
	OpEndsWith     Operator = "endswith"
	OpIn           Operator = "in"
	OpBetween      Operator = "between"
	OpRegex        Operator = "regex"
	OpHasTag       Operator = "has_tag"
	OpWithinHours  Operator = "within_hours"
	OpWithinDays   Operator = "within_days"
	OpWithinWeeks  Operator = "within_weeks"
	OpWithinMonths Operator = "within_months"
)

// allOperators lists every implemented operator in display order.
var allOperators = []Operator{
	OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte,
	OpContains, OpIContains, OpNotContains, OpStartsWith, OpEndsWith,
	OpIn, OpBetween, OpRegex, OpHasTag,
	OpWithinHours, OpWithinDays, OpWithinWeeks, OpWithinMonths,
}

// windowSeconds maps within_* operators to their unit length.
var windowSeconds = map[Operator]float64{
	OpWithinHours:  types.SecondsPerHour,
	OpWithinDays:   types.SecondsPerDay,
	OpWithinWeeks:  types.SecondsPerWeek,
	OpWithinMonths: types.SecondsPerMonth,
}

// now is the clock used by within_* operators and derived fields.
// Replaced in tests for deterministic windows.
var now = time.Now

// Operators returns every implemented operator.
func Operators() []Operator {
	out := make([]Operator, len(allOperators))
	copy(out, allOperators)
	return out
}

// Known reports whether op is implemented.
func (op Operator) Known() bool {
	for _, o := range allOperators {
		if o == op {
			return true
		}
	}
	return false
}

// Numeric reports whether op compares operands as numbers.
func (op Operator) Numeric() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	default:
		return false
	}
}

// Compare applies the operator to left (the entry's value) and right (the rule's value).
// Unknown operators and mismatched operand types return false.
func Compare(op Operator, left, right any) bool {
	switch op {
	case OpEq:
		return equal(left, right)
	case OpNeq:
		return !equal(left, right)
	case OpGt:
		l, r, ok := numericPair(left, right)
		return ok && l > r
	case OpGte:
		l, r, ok := numericPair(left, right)
		return ok && l >= r
	case OpLt:
		l, r, ok := numericPair(left, right)
		return ok && l < r
	case OpLte:
		l, r, ok := numericPair(left, right)
		return ok && l <= r
	case OpBetween:
		return compareBetween(left, right)
	case OpContains, OpIContains:
		return compareStrings(left, right, strings.Contains)
	case OpNotContains:
		return compareStrings(left, right, func(s, sub string) bool { return !strings.Contains(s, sub) })
	case OpStartsWith:
		return compareStrings(left, right, strings.HasPrefix)
	case OpEndsWith:
		return compareStrings(left, right, strings.HasSuffix)
	case OpIn:
		return compareIn(left, right)
	case OpRegex:
		return compareRegex(left, right)
	case OpHasTag:
		return compareHasTag(left, right)
	case OpWithinHours, OpWithinDays, OpWithinWeeks, OpWithinMonths:
		return compareWithin(left, right, windowSeconds[op])
	default:
		return false
	}
}

// equal performs equality with numeric coercion across native number kinds.
// Strings are never coerced: "3" does not equal 3.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNativeNumber(a) && isNativeNumber(b) {
		na, _ := toNumber(a)
		nb, _ := toNumber(b)
		return na == nb
	}
	if as, ok := toSlice(a); ok {
		bs, ok := toSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// compareBetween checks low <= left <= high over a two-element bound list.
func compareBetween(left, bounds any) bool {
	b, ok := toSlice(bounds)
	if !ok || len(b) != 2 || b[0] == nil || b[1] == nil {
		return false
	}
	v, ok := toNumber(left)
	if !ok {
		return false
	}
	low, okLow := toNumber(b[0])
	high, okHigh := toNumber(b[1])
	if !okLow || !okHigh {
		return false
	}
	return low <= v && v <= high
}

// compareStrings lowercases both string operands and applies fn.
// Returns false for non-string types.
func compareStrings(left, right any, fn func(s, sub string) bool) bool {
	ls, ok1 := left.(string)
	rs, ok2 := right.(string)
	if !ok1 || !ok2 {
		return false
	}
	return fn(strings.ToLower(ls), strings.ToLower(rs))
}

// compareIn checks membership of left in the right-hand list using equal.
func compareIn(left, set any) bool {
	arr, ok := toSlice(set)
	if !ok {
		return false
	}
	for _, elem := range arr {
		if equal(left, elem) {
			return true
		}
	}
	return false
}

// compareRegex searches left for the pattern; invalid patterns never match.
func compareRegex(left, pattern any) bool {
	s, ok1 := left.(string)
	p, ok2 := pattern.(string)
	if !ok1 || !ok2 {
		return false
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// compareHasTag checks for a case-insensitive exact tag match.
// A non-string element before the match fails the comparison.
func compareHasTag(left, tag any) bool {
	want, ok := tag.(string)
	if !ok {
		return false
	}
	tags, ok := toSlice(left)
	if !ok {
		return false
	}
	for _, t := range tags {
		s, ok := t.(string)
		if !ok {
			return false
		}
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// compareWithin checks that left, as epoch seconds, is no older than amount*unit seconds.
func compareWithin(left, amount any, unit float64) bool {
	if !isNativeNumber(amount) {
		return false
	}
	n, _ := toNumber(amount)
	if n < 0 {
		return false
	}
	ts, ok := coerceEpoch(left)
	if !ok {
		return false
	}
	cutoff := float64(now().UnixNano())/float64(time.Second) - n*unit
	return ts >= cutoff
}

// toSlice flattens list-shaped values ([]any, []string, [2]float64, ...) to []any.
func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case nil, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
