// internal/rules/cost.go
package rules

/*
 * Cost model for rule evaluation order.
 *
 * Compiled groups evaluate cheaper children first so AND/OR short-circuit
 * skips the expensive ones (regex, metadata-backed fields) for most entries.
 * Children are pure, so order never changes the boolean result.
 *
 * Cost formula: lookup_cost + operator_cost
 * Group cost:   sum of child costs (a group is as expensive as its subtree)
 */

const (
	// Operator base costs
	CostEq      = 5
	CostOrder   = 7
	CostWithin  = 7
	CostIn      = 8
	CostBetween = 8
	CostString  = 10
	CostHasTag  = 10
	CostRegex   = 48

	// Field lookup costs
	CostLookupEntry    = 1  // attribute on the media entry itself
	CostLookupDerived  = 2  // computed from entry attributes (age_days, filesize_mb)
	CostLookupMetadata = 32 // may hit the metadata provider

	// Rules that can never match cost nothing to evaluate.
	CostDead = 0
)

// RuleCost estimates evaluation cost of a single rule.
func RuleCost(r Rule) int {
	if !IsAllowedField(r.Field) || !r.Op.Known() {
		return CostDead
	}
	return lookupCost(r.Field) + operatorCost(r.Op)
}

func lookupCost(field string) int {
	switch field {
	case FieldPath, FieldKind, FieldSize, FieldMtime, FieldRating, FieldTags:
		return CostLookupEntry
	case FieldAgeDays, FieldFilesizeMB:
		return CostLookupDerived
	default:
		return CostLookupMetadata
	}
}

func operatorCost(op Operator) int {
	switch op {
	case OpEq, OpNeq:
		return CostEq
	case OpGt, OpGte, OpLt, OpLte:
		return CostOrder
	case OpWithinHours, OpWithinDays, OpWithinWeeks, OpWithinMonths:
		return CostWithin
	case OpIn:
		return CostIn
	case OpBetween:
		return CostBetween
	case OpContains, OpIContains, OpNotContains, OpStartsWith, OpEndsWith:
		return CostString
	case OpHasTag:
		return CostHasTag
	case OpRegex:
		return CostRegex
	default:
		return CostEq
	}
}
