// Package router decides what happens to a classification: accept it
// automatically, ask the user clarifying questions, or escalate to a human
// reviewer.
package router

import (
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// Action is the routing outcome for a classification.
type Action string

// Routing actions.
const (
	ActionAutoClassify Action = "auto_classify"
	ActionClarify      Action = "clarify"
	ActionManualReview Action = "manual_review"
)

// Config holds the routing thresholds and the strategic evidence policy.
type Config struct {
	// AutoThreshold is the minimum confidence for automatic acceptance.
	AutoThreshold float64
	// LowThreshold is the confidence below which a human must adjudicate.
	LowThreshold float64
	// RequiredEvidence lists evidence keys that must be gathered before a
	// classification may be auto-accepted, no matter how confident it is.
	RequiredEvidence []string
}

// DefaultConfig returns the default routing configuration.
func DefaultConfig() Config {
	return Config{
		AutoThreshold: 0.95,
		LowThreshold:  0.55,
		RequiredEvidence: []string{
			"success_criteria",
			"risk_constraints",
			"value_estimate",
			"sponsorship",
		},
	}
}

// Router maps confidence and evidence state to a routing action.
type Router struct {
	config Config
}

// New creates a router with the given configuration.
func New(config Config) *Router {
	if config.AutoThreshold <= 0 {
		config.AutoThreshold = 0.95
	}
	if config.LowThreshold <= 0 {
		config.LowThreshold = 0.55
	}
	return &Router{config: config}
}

// Route decides the next step for a classification. The decision is monotonic
// in confidence for a fixed evidence state: raising confidence never moves
// the outcome to a stricter tier. Missing required evidence always prevents
// auto_classify, even above the confidence threshold, which forces at least
// one clarification round on strategically important cases the LLM only
// appears to have enough context for.
func (r *Router) Route(classification model.Classification, evidence service.EvidenceState) Action {
	confidence := model.Clamp01(classification.Confidence)

	if confidence >= r.config.AutoThreshold && evidence.Complete(r.config.RequiredEvidence) {
		return ActionAutoClassify
	}

	if confidence < r.config.LowThreshold {
		return ActionManualReview
	}

	return ActionClarify
}

// MissingEvidence lists the required evidence keys not yet gathered, in
// configured order.
func (r *Router) MissingEvidence(evidence service.EvidenceState) []string {
	var missing []string
	for _, key := range r.config.RequiredEvidence {
		if !evidence[key] {
			missing = append(missing, key)
		}
	}
	return missing
}
