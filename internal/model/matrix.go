package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConditionOperator compares an attribute's runtime value against a condition value.
type ConditionOperator string

// Condition operator constants.
const (
	OpEqual          ConditionOperator = "=="
	OpNotEqual       ConditionOperator = "!="
	OpGreaterThan    ConditionOperator = ">"
	OpLessThan       ConditionOperator = "<"
	OpGreaterOrEqual ConditionOperator = ">="
	OpLessOrEqual    ConditionOperator = "<="
	OpIn             ConditionOperator = "in"
	OpNotIn          ConditionOperator = "not_in"
)

// Valid reports whether the operator is one of the supported comparisons.
func (op ConditionOperator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual, OpIn, OpNotIn:
		return true
	}
	return false
}

// Numeric reports whether the operator requires numeric coercion.
func (op ConditionOperator) Numeric() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return true
	}
	return false
}

// ConditionValueKind tags the concrete type held by a ConditionValue.
type ConditionValueKind int

// Condition value kinds.
const (
	ValueString ConditionValueKind = iota
	ValueNumber
	ValueBool
	ValueList
)

// ConditionValue is a tagged variant for condition comparison values. Matrix
// JSON carries raw scalars or string arrays; the tag is assigned on decode so
// operator/value mismatches are caught at import time instead of silently
// mis-evaluating.
type ConditionValue struct {
	Kind ConditionValueKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// StringValue builds a string-typed condition value.
func StringValue(s string) ConditionValue {
	return ConditionValue{Kind: ValueString, Str: s}
}

// NumberValue builds a numeric condition value.
func NumberValue(n float64) ConditionValue {
	return ConditionValue{Kind: ValueNumber, Num: n}
}

// BoolValue builds a boolean condition value.
func BoolValue(b bool) ConditionValue {
	return ConditionValue{Kind: ValueBool, Bool: b}
}

// ListValue builds a string-list condition value for in/not_in operators.
func ListValue(items ...string) ConditionValue {
	return ConditionValue{Kind: ValueList, List: items}
}

// UnmarshalJSON decodes a raw JSON scalar or string array into the variant.
func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("condition value lists must contain only strings, got %T", item)
			}
			items[i] = s
		}
		*v = ListValue(items...)
	default:
		return fmt.Errorf("unsupported condition value type %T", raw)
	}

	return nil
}

// MarshalJSON encodes the variant back to the raw JSON form admin tooling edits.
func (v ConditionValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueList:
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("unknown condition value kind %d", v.Kind)
}

// String renders the value for logging and explanations.
func (v ConditionValue) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueList:
		return "[" + strings.Join(v.List, ", ") + "]"
	}
	return ""
}

// Condition gates a rule on one attribute. A condition referencing an
// attribute the matrix does not declare never matches.
type Condition struct {
	Attribute string            `json:"attribute"`
	Operator  ConditionOperator `json:"operator"`
	Value     ConditionValue    `json:"value"`
}

// RuleActionType is what a triggered rule does to the classification.
type RuleActionType string

// Rule action type constants.
const (
	ActionOverride         RuleActionType = "override"
	ActionAdjustConfidence RuleActionType = "adjust_confidence"
	ActionFlagReview       RuleActionType = "flag_review"
)

// RuleAction describes the effect of a matching rule.
//
// TargetCategory is declared as json.RawMessage because admin-edited matrix
// JSON has been observed carrying it as a one-element array instead of a
// scalar; the evaluator sanitizes that non-fatally.
type RuleAction struct {
	Type                 RuleActionType  `json:"type"`
	TargetCategory       json.RawMessage `json:"targetCategory,omitempty"`
	ConfidenceAdjustment *float64        `json:"confidenceAdjustment,omitempty"`
	Rationale            string          `json:"rationale"`
}

// ResolveTargetCategory decodes the override target, accepting a malformed
// one-element array by taking its first element. The bool reports whether
// sanitization was needed.
func (a *RuleAction) ResolveTargetCategory() (TransformationCategory, bool, error) {
	if len(a.TargetCategory) == 0 {
		return "", false, fmt.Errorf("override action has no target category")
	}

	var single TransformationCategory
	if err := json.Unmarshal(a.TargetCategory, &single); err == nil {
		return single, false, nil
	}

	var list []TransformationCategory
	if err := json.Unmarshal(a.TargetCategory, &list); err == nil {
		if len(list) == 0 {
			return "", false, fmt.Errorf("override target category list is empty")
		}
		return list[0], true, nil
	}

	return "", false, fmt.Errorf("cannot decode target category %s", string(a.TargetCategory))
}

// Rule is a prioritized conditional refinement of an LLM classification.
// Conditions are AND-combined.
type Rule struct {
	RuleID      string      `json:"ruleId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Conditions  []Condition `json:"conditions"`
	Action      RuleAction  `json:"action"`
	Priority    int         `json:"priority"`
	Active      bool        `json:"active"`
}

// DecisionMatrix is a versioned bundle of weighted attributes and rules.
// Versions are immutable once created; edits always produce a new version.
type DecisionMatrix struct {
	Version     string      `json:"version"`
	CreatedAt   time.Time   `json:"createdAt"`
	CreatedBy   string      `json:"createdBy"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
	Rules       []Rule      `json:"rules"`
	Active      bool        `json:"active"`
}

// AttributeByName looks up a declared attribute.
func (m *DecisionMatrix) AttributeByName(name string) (*Attribute, bool) {
	for i := range m.Attributes {
		if m.Attributes[i].Name == name {
			return &m.Attributes[i], true
		}
	}
	return nil, false
}

// ParseVersion splits a "major.minor" version string.
func ParseVersion(version string) (major, minor int, err error) {
	parts := strings.Split(version, ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("version %q is not in major.minor form", version)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("version %q has non-numeric major component", version)
	}

	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("version %q has non-numeric minor component", version)
	}

	if major < 0 || minor < 0 {
		return 0, 0, fmt.Errorf("version %q has negative components", version)
	}

	return major, minor, nil
}

// CompareVersions orders two "major.minor" version strings. It returns a
// negative value when a < b, zero when equal, positive when a > b.
func CompareVersions(a, b string) (int, error) {
	aMajor, aMinor, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}

	bMajor, bMinor, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}

	if aMajor != bMajor {
		return aMajor - bMajor, nil
	}
	return aMinor - bMinor, nil
}
