package model

// TriggeredRule records one matching rule with its resolved action, for
// auditability. Every matching rule appears here, not just the winning
// override.
type TriggeredRule struct {
	RuleID    string         `json:"ruleId"`
	Name      string         `json:"name"`
	Priority  int            `json:"priority"`
	Action    RuleActionType `json:"action"`
	Rationale string         `json:"rationale"`
}

// EvaluationResult is the output of running a decision matrix against an LLM
// classification. It is a pure value with no side effects.
type EvaluationResult struct {
	MatrixVersion          string                             `json:"matrixVersion"`
	OriginalClassification Classification                     `json:"originalClassification"`
	ExtractedAttributes    map[string]ExtractedAttributeValue `json:"extractedAttributes"`
	TriggeredRules         []TriggeredRule                    `json:"triggeredRules"`
	FinalClassification    Classification                     `json:"finalClassification"`
	Overridden             bool                               `json:"overridden"`
	FlaggedForReview       bool                               `json:"flaggedForReview"`
	ReviewRationales       []string                           `json:"reviewRationales,omitempty"`
}
