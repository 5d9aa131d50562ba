// internal/rules/validate.go
package rules

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/solatis/smartlist/internal/types"
)

// Validate reports structural problems in a rule tree.
// Evaluation tolerates every problem reported here; Validate exists so editors,
// the CLI and the API can explain why a rule never matches.
// Returns nil when the tree is clean, otherwise errors.Join of one error per problem.
func Validate(g RuleGroup) error {
	var errs []error
	validateGroup(g, "root", &errs)
	return errors.Join(errs...)
}

func validateGroup(g RuleGroup, loc string, errs *[]error) {
	if g.Match != types.MatchAll && g.Match != types.MatchAny {
		*errs = append(*errs, fmt.Errorf("%s: %w: %q", loc, types.ErrInvalidMatch, g.Match))
	}
	for i, r := range g.Rules {
		if err := ValidateRule(r); err != nil {
			*errs = append(*errs, fmt.Errorf("%s.rules[%d]: %w", loc, i, err))
		}
	}
	for i, sub := range g.Groups {
		validateGroup(sub, fmt.Sprintf("%s.groups[%d]", loc, i), errs)
	}
}

// ValidateRule checks a single rule's field, operator and operand shape.
func ValidateRule(r Rule) error {
	if !IsAllowedField(r.Field) {
		return fmt.Errorf("%w: %q", types.ErrUnknownField, r.Field)
	}
	if !r.Op.Known() {
		return fmt.Errorf("%w: %q", types.ErrUnknownOperator, r.Op)
	}
	if err := validateOperand(r.Op, r.Value); err != nil {
		return fmt.Errorf("%s %s: %w", r.Field, r.Op, err)
	}
	return nil
}

func validateOperand(op Operator, v any) error {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		if _, ok := toNumber(v); !ok {
			return fmt.Errorf("%w: want a number, got %T", types.ErrInvalidOperand, v)
		}
	case OpBetween:
		b, ok := toSlice(v)
		if !ok || len(b) != 2 {
			return fmt.Errorf("%w: want [low, high]", types.ErrInvalidOperand)
		}
		for _, bound := range b {
			if _, ok := toNumber(bound); !ok {
				return fmt.Errorf("%w: bound %v is not a number", types.ErrInvalidOperand, bound)
			}
		}
	case OpContains, OpIContains, OpNotContains, OpStartsWith, OpEndsWith, OpHasTag:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: want a string, got %T", types.ErrInvalidOperand, v)
		}
	case OpRegex:
		p, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: want a pattern string, got %T", types.ErrInvalidOperand, v)
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidOperand, err)
		}
	case OpIn:
		if _, ok := toSlice(v); !ok {
			return fmt.Errorf("%w: want a list, got %T", types.ErrInvalidOperand, v)
		}
	case OpWithinHours, OpWithinDays, OpWithinWeeks, OpWithinMonths:
		n, ok := toNumber(v)
		if !isNativeNumber(v) || !ok || n < 0 {
			return fmt.Errorf("%w: want a non-negative number", types.ErrInvalidOperand)
		}
	}
	return nil
}
