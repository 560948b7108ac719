package matrix

import (
	"fmt"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// Validate checks a decision matrix at import time, before it can ever be
// evaluated. Operator/value mismatches are rejected here rather than being
// silently mis-evaluated later. A condition that references an undeclared
// attribute is accepted: at evaluation time it simply never matches.
func Validate(m *model.DecisionMatrix) error {
	if _, _, err := model.ParseVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidMatrix, err)
	}

	seenAttrs := make(map[string]bool)
	for i := range m.Attributes {
		attr := &m.Attributes[i]
		if err := attr.Validate(); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidMatrix, err)
		}
		if seenAttrs[attr.Name] {
			return fmt.Errorf("%w: duplicate attribute %q", common.ErrInvalidMatrix, attr.Name)
		}
		seenAttrs[attr.Name] = true
	}

	seenRules := make(map[string]bool)
	for i := range m.Rules {
		rule := &m.Rules[i]
		if err := validateRule(m, rule); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidMatrix, err)
		}
		if seenRules[rule.RuleID] {
			return fmt.Errorf("%w: duplicate rule id %q", common.ErrInvalidMatrix, rule.RuleID)
		}
		seenRules[rule.RuleID] = true
	}

	return nil
}

// ValidateSuccessor enforces that a new matrix version is strictly greater
// than its predecessor. Versions are immutable; updates always create a new,
// higher version.
func ValidateSuccessor(previous, next string) error {
	cmp, err := model.CompareVersions(next, previous)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidMatrix, err)
	}
	if cmp <= 0 {
		return fmt.Errorf("%w: %s does not supersede %s", common.ErrVersionConflict, next, previous)
	}
	return nil
}

func validateRule(m *model.DecisionMatrix, rule *model.Rule) error {
	if rule.RuleID == "" {
		return fmt.Errorf("rule %q has no id", rule.Name)
	}

	for _, cond := range rule.Conditions {
		if err := validateCondition(m, rule, cond); err != nil {
			return err
		}
	}

	switch rule.Action.Type {
	case model.ActionOverride:
		if _, _, err := rule.Action.ResolveTargetCategory(); err != nil {
			return fmt.Errorf("rule %q: %v", rule.RuleID, err)
		}
	case model.ActionAdjustConfidence:
		if rule.Action.ConfidenceAdjustment == nil {
			return fmt.Errorf("rule %q: adjust_confidence action requires a confidence adjustment", rule.RuleID)
		}
	case model.ActionFlagReview:
		// No extra fields required.
	default:
		return fmt.Errorf("rule %q has invalid action type %q", rule.RuleID, rule.Action.Type)
	}

	return nil
}

func validateCondition(m *model.DecisionMatrix, rule *model.Rule, cond model.Condition) error {
	if cond.Attribute == "" {
		return fmt.Errorf("rule %q has a condition with no attribute reference", rule.RuleID)
	}

	if !cond.Operator.Valid() {
		return fmt.Errorf("rule %q: invalid operator %q", rule.RuleID, cond.Operator)
	}

	// Operator/value shape checks.
	switch cond.Operator {
	case model.OpIn, model.OpNotIn:
		if cond.Value.Kind != model.ValueList {
			return fmt.Errorf("rule %q: operator %s requires a string list value", rule.RuleID, cond.Operator)
		}
	default:
		if cond.Value.Kind == model.ValueList {
			return fmt.Errorf("rule %q: operator %s cannot compare against a list", rule.RuleID, cond.Operator)
		}
	}

	if cond.Operator.Numeric() && cond.Value.Kind == model.ValueBool {
		return fmt.Errorf("rule %q: operator %s cannot compare against a boolean", rule.RuleID, cond.Operator)
	}

	// Type checks against the declared attribute, when it is declared.
	attr, declared := m.AttributeByName(cond.Attribute)
	if !declared {
		return nil
	}

	switch attr.Type {
	case model.AttributeNumeric:
		if cond.Value.Kind == model.ValueBool {
			return fmt.Errorf("rule %q: numeric attribute %q compared against a boolean", rule.RuleID, attr.Name)
		}
	case model.AttributeBoolean:
		if cond.Operator.Numeric() {
			return fmt.Errorf("rule %q: boolean attribute %q used with numeric operator %s", rule.RuleID, attr.Name, cond.Operator)
		}
	case model.AttributeCategorical:
		if cond.Value.Kind == model.ValueNumber || cond.Value.Kind == model.ValueBool {
			return fmt.Errorf("rule %q: categorical attribute %q compared against a non-string value", rule.RuleID, attr.Name)
		}
	}

	return nil
}
