// internal/rules/compile.go
package rules

import (
	"regexp"
	"sort"
)

/*
 * Rule tree compilation.
 *
 * Compiles a RuleGroup into an immutable evaluation plan used when the same
 * tree runs against many entries (playlist evaluation over a catalog).
 *
 * Compilation workflow:
 *   1. Mark rules with an unknown field or operator as dead (always false pre-negation)
 *   2. Pre-compile regex patterns once; invalid patterns mark the rule dead
 *   3. Calculate rule and group costs using the cost model
 *   4. Order children by ascending cost (stable sort for determinism)
 *
 * Compilation never fails. Malformed rules still evaluate, they just never
 * match, so a compiled group returns exactly what RuleGroup.Evaluate returns
 * for every provider.
 */

// CompiledRule is a pre-processed rule ready for evaluation.
type CompiledRule struct {
	Rule Rule
	Cost int
	dead bool
	re   *regexp.Regexp
}

// CompiledGroup is a pre-processed group with children ordered by ascending cost.
type CompiledGroup struct {
	Any    bool
	Negate bool
	Rules  []CompiledRule
	Groups []*CompiledGroup
	Cost   int
}

// Compile pre-processes a group tree for repeated evaluation.
func Compile(g RuleGroup) *CompiledGroup {
	cg := &CompiledGroup{
		Any:    g.IsAny(),
		Negate: g.Negate,
		Rules:  make([]CompiledRule, 0, len(g.Rules)),
		Groups: make([]*CompiledGroup, 0, len(g.Groups)),
	}
	for _, r := range g.Rules {
		cr := compileRule(r)
		cg.Rules = append(cg.Rules, cr)
		cg.Cost += cr.Cost
	}
	for _, sub := range g.Groups {
		csub := Compile(sub)
		cg.Groups = append(cg.Groups, csub)
		cg.Cost += csub.Cost
	}

	// Stable sort: equal-cost children keep display order
	sort.SliceStable(cg.Rules, func(i, j int) bool {
		return cg.Rules[i].Cost < cg.Rules[j].Cost
	})
	sort.SliceStable(cg.Groups, func(i, j int) bool {
		return cg.Groups[i].Cost < cg.Groups[j].Cost
	})
	return cg
}

func compileRule(r Rule) CompiledRule {
	cr := CompiledRule{Rule: r, Cost: RuleCost(r)}
	if !IsAllowedField(r.Field) || !r.Op.Known() {
		cr.dead = true
		return cr
	}
	if r.Op == OpRegex {
		p, ok := r.Value.(string)
		if !ok {
			cr.dead = true
			return cr
		}
		re, err := regexp.Compile(p)
		if err != nil {
			cr.dead = true
			return cr
		}
		cr.re = re
	}
	return cr
}

// Matches reports whether the compiled rule holds for the entry behind vp.
func (cr *CompiledRule) Matches(vp ValueProvider) bool {
	return cr.matchesRaw(vp) != cr.Rule.Negate
}

func (cr *CompiledRule) matchesRaw(vp ValueProvider) (matched bool) {
	if cr.dead {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	var left any
	if vp != nil {
		left = vp(cr.Rule.Field)
	}
	if cr.re != nil {
		s, ok := left.(string)
		return ok && cr.re.MatchString(s)
	}
	return Compare(cr.Rule.Op, left, cr.Rule.Value)
}

// Evaluate reports whether the compiled group holds for the entry behind vp.
func (cg *CompiledGroup) Evaluate(vp ValueProvider) bool {
	return cg.evaluateRaw(vp) != cg.Negate
}

func (cg *CompiledGroup) evaluateRaw(vp ValueProvider) bool {
	for i := range cg.Rules {
		if cg.Rules[i].Matches(vp) == cg.Any {
			return cg.Any
		}
	}
	for _, sub := range cg.Groups {
		if sub.Evaluate(vp) == cg.Any {
			return cg.Any
		}
	}
	return !cg.Any
}
