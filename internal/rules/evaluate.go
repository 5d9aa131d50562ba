// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/smartlist/internal/types"
)

/*
 * Rule tree model and direct evaluation.
 *
 * A RuleGroup owns its child rules and groups by value, so a tree can never
 * share a node between two parents. Evaluation is a pure function of the
 * value provider: no locks, no I/O, no errors.
 *
 * Evaluation flow:
 *   1. Rule: allow-listed field -> resolve value -> operator -> negate
 *   2. Group: combine child rules and child groups with AND ("all") or OR ("any")
 *   3. Group: apply negate to the combined result
 *
 * Empty groups: an empty "all" group is true (AND identity) and an empty
 * "any" group is false (OR identity), both before negation. Any match value
 * other than "any" combines with AND.
 *
 * Short-circuit: children are pure, so the first false child of an "all"
 * group (or true child of an "any" group) decides the result.
 */

// Rule is a single field/operator/value comparison.
type Rule struct {
	Field  string
	Op     Operator
	Value  any
	Negate bool
	UID    types.UID
}

// RuleGroup combines child rules and nested groups with ALL or ANY semantics.
type RuleGroup struct {
	Match  string
	Negate bool
	Rules  []Rule
	Groups []RuleGroup
	UID    types.UID
}

// NewRule creates a rule with a fresh UID.
func NewRule(field string, op Operator, value any) Rule {
	return Rule{Field: field, Op: op, Value: value, UID: types.NewUID()}
}

// NewGroup creates an empty group with a fresh UID.
// Empty match defaults to "all".
func NewGroup(match string) RuleGroup {
	if match == "" {
		match = types.MatchAll
	}
	return RuleGroup{Match: match, UID: types.NewUID()}
}

// Matches reports whether the rule holds for the entry behind vp.
// Never panics: any failure inside an operator counts as a non-match before negation.
func (r Rule) Matches(vp ValueProvider) bool {
	return r.matchesRaw(vp) != r.Negate
}

func (r Rule) matchesRaw(vp ValueProvider) (matched bool) {
	if !IsAllowedField(r.Field) || !r.Op.Known() {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	var left any
	if vp != nil {
		left = vp(r.Field)
	}
	return Compare(r.Op, left, r.Value)
}

// IsAny reports whether the group combines children with OR.
func (g RuleGroup) IsAny() bool {
	return g.Match == types.MatchAny
}

// Evaluate reports whether the group holds for the entry behind vp.
func (g RuleGroup) Evaluate(vp ValueProvider) bool {
	return g.evaluateRaw(vp) != g.Negate
}

func (g RuleGroup) evaluateRaw(vp ValueProvider) bool {
	anyMode := g.IsAny()
	for _, r := range g.Rules {
		if r.Matches(vp) == anyMode {
			return anyMode
		}
	}
	for _, sub := range g.Groups {
		if sub.Evaluate(vp) == anyMode {
			return anyMode
		}
	}
	return !anyMode
}

// Clone returns a deep copy of the group; rule values are shared since evaluation never mutates them.
func (g RuleGroup) Clone() RuleGroup {
	out := g
	if g.Rules != nil {
		out.Rules = make([]Rule, len(g.Rules))
		copy(out.Rules, g.Rules)
	}
	if g.Groups != nil {
		out.Groups = make([]RuleGroup, len(g.Groups))
		for i, sub := range g.Groups {
			out.Groups[i] = sub.Clone()
		}
	}
	return out
}

// AssignUIDs gives a fresh UID to every rule and group in the tree that lacks one.
func (g *RuleGroup) AssignUIDs() {
	if g.UID == "" {
		g.UID = types.NewUID()
	}
	for i := range g.Rules {
		if g.Rules[i].UID == "" {
			g.Rules[i].UID = types.NewUID()
		}
	}
	for i := range g.Groups {
		g.Groups[i].AssignUIDs()
	}
}
