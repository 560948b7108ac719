package model

// Classification is the LLM's judgement about a business process, refined
// later by the decision matrix evaluator.
type Classification struct {
	Category            TransformationCategory `json:"category"`
	Confidence          float64                `json:"confidence"`
	Rationale           string                 `json:"rationale"`
	CategoryProgression string                 `json:"categoryProgression,omitempty"`
	FutureOpportunities []string               `json:"futureOpportunities,omitempty"`
}

// ClampConfidence forces the confidence score into [0, 1].
func (c *Classification) ClampConfidence() {
	c.Confidence = Clamp01(c.Confidence)
}

// ClarificationQA is one question/answer exchange in an interview.
// The per-session history is append-only.
type ClarificationQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Clamp01 bounds a value to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
