package model

import "fmt"

// AttributeType describes how an attribute's values are interpreted.
type AttributeType string

// Attribute type constants.
const (
	AttributeCategorical AttributeType = "categorical"
	AttributeNumeric     AttributeType = "numeric"
	AttributeBoolean     AttributeType = "boolean"
)

// UnknownValue is the fallback value for attributes the extractor could not
// determine. Attributes are never omitted, only marked unknown.
const UnknownValue = "unknown"

// Attribute is a matrix-declared business attribute that conditions can
// reference by name.
type Attribute struct {
	Name           string        `json:"name"`
	Type           AttributeType `json:"type"`
	PossibleValues []string      `json:"possibleValues,omitempty"`
	Weight         float64       `json:"weight"`
	Description    string        `json:"description"`
}

// Validate checks the attribute declaration.
func (a *Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("attribute name is required")
	}

	switch a.Type {
	case AttributeCategorical, AttributeNumeric, AttributeBoolean:
	default:
		return fmt.Errorf("attribute %q has invalid type %q", a.Name, a.Type)
	}

	if a.Weight < 0 || a.Weight > 1 {
		return fmt.Errorf("attribute %q weight must be between 0.0 and 1.0, got %.2f", a.Name, a.Weight)
	}

	if a.Type == AttributeCategorical && len(a.PossibleValues) == 0 {
		return fmt.Errorf("categorical attribute %q must declare possible values", a.Name)
	}

	return nil
}

// ExtractedAttributeValue is the extractor's answer for a single declared
// attribute, with the reasoning behind it.
type ExtractedAttributeValue struct {
	Value       string `json:"value"`
	Explanation string `json:"explanation"`
}

// IsUnknown reports whether the extractor failed to resolve this attribute.
func (v ExtractedAttributeValue) IsUnknown() bool {
	return v.Value == "" || v.Value == UnknownValue
}
