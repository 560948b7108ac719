// Package model defines the core domain models used throughout the application.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransformationCategory is one of the six ordered transformation outcomes a
// business process can be classified into. The order encodes increasing
// automation maturity and is used for progression explanations.
type TransformationCategory string

// Transformation categories, from least to most automated.
const (
	CategoryEliminate TransformationCategory = "Eliminate"
	CategorySimplify  TransformationCategory = "Simplify"
	CategoryDigitise  TransformationCategory = "Digitise"
	CategoryRPA       TransformationCategory = "RPA"
	CategoryAIAgent   TransformationCategory = "AI Agent"
	CategoryAgenticAI TransformationCategory = "Agentic AI"
)

// categoryOrder lists all categories in maturity order.
var categoryOrder = []TransformationCategory{
	CategoryEliminate,
	CategorySimplify,
	CategoryDigitise,
	CategoryRPA,
	CategoryAIAgent,
	CategoryAgenticAI,
}

// AllCategories returns the six categories in maturity order.
func AllCategories() []TransformationCategory {
	out := make([]TransformationCategory, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Rank returns the position of the category in the maturity order,
// or -1 if the category is unknown.
func (c TransformationCategory) Rank() int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return -1
}

// Valid reports whether the category is one of the six known values.
func (c TransformationCategory) Valid() bool {
	return c.Rank() >= 0
}

// Next returns the next category in the maturity order. The second return
// value is false when the category is already the most advanced or unknown.
func (c TransformationCategory) Next() (TransformationCategory, bool) {
	rank := c.Rank()
	if rank < 0 || rank >= len(categoryOrder)-1 {
		return "", false
	}
	return categoryOrder[rank+1], true
}

// Before reports whether c comes strictly before other in the maturity order.
// Unknown categories are never before anything.
func (c TransformationCategory) Before(other TransformationCategory) bool {
	a, b := c.Rank(), other.Rank()
	return a >= 0 && b >= 0 && a < b
}

// ParseCategory resolves a category from free text, tolerating case and
// spacing differences in LLM output.
func ParseCategory(s string) (TransformationCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")

	for _, cat := range categoryOrder {
		if normalized == strings.ToLower(string(cat)) {
			return cat, nil
		}
	}

	// Common LLM shorthands.
	switch normalized {
	case "robotic process automation":
		return CategoryRPA, nil
	case "digitize":
		return CategoryDigitise, nil
	case "ai", "ai agents":
		return CategoryAIAgent, nil
	case "agentic":
		return CategoryAgenticAI, nil
	}

	return "", fmt.Errorf("unknown transformation category %q", s)
}

// UnmarshalJSON validates the category on decode so malformed matrix or LLM
// JSON is rejected at the boundary.
func (c *TransformationCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	cat, err := ParseCategory(s)
	if err != nil {
		return err
	}

	*c = cat
	return nil
}
