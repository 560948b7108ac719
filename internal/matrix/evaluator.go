// Package matrix implements decision matrix evaluation and validation.
// Evaluation refines an LLM classification by applying the versioned,
// human-editable rule set an admin maintains against the attributes
// extracted from the conversation.
package matrix

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// Evaluate applies a decision matrix to a classification. It is pure and
// deterministic: identical inputs always produce an identical result, and no
// storage is read or written.
//
// Among matching rules the highest-priority override wins the category, every
// matching adjust_confidence rule contributes to the summed adjustment, and
// any matching flag_review rule sets the review flag. All matching rules are
// reported in TriggeredRules, priority descending.
func Evaluate(matrix *model.DecisionMatrix, classification model.Classification, attrs map[string]model.ExtractedAttributeValue) model.EvaluationResult {
	result := model.EvaluationResult{
		MatrixVersion:          matrix.Version,
		OriginalClassification: classification,
		ExtractedAttributes:    attrs,
		FinalClassification:    classification,
	}

	rules := activeRulesByPriority(matrix.Rules)

	overrideApplied := false
	adjustment := 0.0

	for _, rule := range rules {
		if !ruleMatches(matrix, rule, attrs) {
			continue
		}

		result.TriggeredRules = append(result.TriggeredRules, model.TriggeredRule{
			RuleID:    rule.RuleID,
			Name:      rule.Name,
			Priority:  rule.Priority,
			Action:    rule.Action.Type,
			Rationale: rule.Action.Rationale,
		})

		switch rule.Action.Type {
		case model.ActionOverride:
			if overrideApplied {
				// Lower-priority overrides are recorded but do not win.
				continue
			}

			target, sanitized, err := rule.Action.ResolveTargetCategory()
			if err != nil {
				slog.Warn("override rule has unusable target category, skipping",
					"rule_id", rule.RuleID,
					"error", err)
				continue
			}
			if sanitized {
				slog.Warn("override target category was a list, using first element",
					"rule_id", rule.RuleID,
					"target", target)
			}

			result.FinalClassification.Category = target
			result.FinalClassification.CategoryProgression = progressionText(target)
			result.Overridden = true
			overrideApplied = true

		case model.ActionAdjustConfidence:
			if rule.Action.ConfidenceAdjustment != nil {
				adjustment += *rule.Action.ConfidenceAdjustment
			}

		case model.ActionFlagReview:
			result.FlaggedForReview = true
			if rule.Action.Rationale != "" {
				result.ReviewRationales = append(result.ReviewRationales, rule.Action.Rationale)
			}
		}
	}

	result.FinalClassification.Confidence = model.Clamp01(classification.Confidence + adjustment)

	return result
}

// activeRulesByPriority filters to active rules and sorts them priority
// descending. The sort is stable so equal priorities keep declaration order.
func activeRulesByPriority(rules []model.Rule) []model.Rule {
	active := make([]model.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	return active
}

// ruleMatches checks every condition of a rule. Conditions are AND-combined;
// a rule with no conditions matches unconditionally.
func ruleMatches(matrix *model.DecisionMatrix, rule model.Rule, attrs map[string]model.ExtractedAttributeValue) bool {
	for _, cond := range rule.Conditions {
		if !conditionMatches(matrix, cond, attrs) {
			return false
		}
	}
	return true
}

// conditionMatches evaluates one condition against the extracted attribute
// values. A condition referencing an attribute the matrix does not declare,
// or one the extractor produced no value for, never matches.
func conditionMatches(matrix *model.DecisionMatrix, cond model.Condition, attrs map[string]model.ExtractedAttributeValue) bool {
	if _, declared := matrix.AttributeByName(cond.Attribute); !declared {
		return false
	}

	extracted, ok := attrs[cond.Attribute]
	if !ok {
		return false
	}

	value := strings.TrimSpace(extracted.Value)

	switch cond.Operator {
	case model.OpEqual:
		return valueEquals(value, cond.Value)
	case model.OpNotEqual:
		return !valueEquals(value, cond.Value)
	case model.OpGreaterThan, model.OpLessThan, model.OpGreaterOrEqual, model.OpLessOrEqual:
		return numericCompare(value, cond.Operator, cond.Value)
	case model.OpIn:
		return listContains(cond.Value, value)
	case model.OpNotIn:
		if cond.Value.Kind != model.ValueList {
			return false
		}
		return !listContains(cond.Value, value)
	}

	return false
}

// valueEquals compares an extracted string value against a typed condition value.
func valueEquals(value string, cv model.ConditionValue) bool {
	switch cv.Kind {
	case model.ValueString:
		return strings.EqualFold(value, cv.Str)
	case model.ValueNumber:
		num, err := strconv.ParseFloat(value, 64)
		return err == nil && num == cv.Num
	case model.ValueBool:
		b, err := parseBool(value)
		return err == nil && b == cv.Bool
	case model.ValueList:
		return false
	}
	return false
}

// numericCompare coerces the extracted value to a number and applies a
// relational operator. Coercion failure means no match, never an error.
func numericCompare(value string, op model.ConditionOperator, cv model.ConditionValue) bool {
	left, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}

	var right float64
	switch cv.Kind {
	case model.ValueNumber:
		right = cv.Num
	case model.ValueString:
		right, err = strconv.ParseFloat(cv.Str, 64)
		if err != nil {
			return false
		}
	default:
		return false
	}

	switch op {
	case model.OpGreaterThan:
		return left > right
	case model.OpLessThan:
		return left < right
	case model.OpGreaterOrEqual:
		return left >= right
	case model.OpLessOrEqual:
		return left <= right
	}

	return false
}

// listContains checks case-insensitive membership in a list condition value.
func listContains(cv model.ConditionValue, value string) bool {
	if cv.Kind != model.ValueList {
		return false
	}
	for _, item := range cv.List {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// parseBool accepts the boolean spellings LLM extraction tends to produce.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean value: %q", value)
}

// progressionText explains the next maturity step for a category using the
// explicit category order.
func progressionText(category model.TransformationCategory) string {
	next, ok := category.Next()
	if !ok {
		return fmt.Sprintf("%s is the most advanced transformation category.", category)
	}
	return fmt.Sprintf("Once %s is in place, the next maturity step would be %s.", category, next)
}
