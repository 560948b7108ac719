package router

import (
	"testing"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
	"github.com/stretchr/testify/assert"
)

func completeEvidence() service.EvidenceState {
	return service.EvidenceState{
		"success_criteria": true,
		"risk_constraints": true,
		"value_estimate":   true,
		"sponsorship":      true,
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		evidence   service.EvidenceState
		want       Action
	}{
		{
			name:       "confident with full evidence auto-classifies",
			confidence: 0.97,
			evidence:   completeEvidence(),
			want:       ActionAutoClassify,
		},
		{
			name:       "exactly at threshold auto-classifies",
			confidence: 0.95,
			evidence:   completeEvidence(),
			want:       ActionAutoClassify,
		},
		{
			name:       "confident but missing evidence clarifies",
			confidence: 0.96,
			evidence:   service.EvidenceState{"success_criteria": true},
			want:       ActionClarify,
		},
		{
			name:       "confident with no evidence clarifies",
			confidence: 0.99,
			evidence:   service.EvidenceState{},
			want:       ActionClarify,
		},
		{
			name:       "middle band clarifies",
			confidence: 0.70,
			evidence:   completeEvidence(),
			want:       ActionClarify,
		},
		{
			name:       "just below low threshold escalates",
			confidence: 0.54,
			evidence:   completeEvidence(),
			want:       ActionManualReview,
		},
		{
			name:       "exactly at low threshold clarifies",
			confidence: 0.55,
			evidence:   service.EvidenceState{},
			want:       ActionClarify,
		},
		{
			name:       "zero confidence escalates",
			confidence: 0,
			evidence:   completeEvidence(),
			want:       ActionManualReview,
		},
		{
			name:       "out of range confidence is clamped",
			confidence: 1.7,
			evidence:   completeEvidence(),
			want:       ActionAutoClassify,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(DefaultConfig())
			got := r.Route(model.Classification{Category: model.CategoryRPA, Confidence: tt.confidence}, tt.evidence)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Raising confidence with evidence held fixed must never move the outcome to
// a stricter tier.
func TestRouteMonotonicInConfidence(t *testing.T) {
	strictness := map[Action]int{
		ActionAutoClassify: 0,
		ActionClarify:      1,
		ActionManualReview: 2,
	}

	for _, evidence := range []service.EvidenceState{completeEvidence(), {}} {
		r := New(DefaultConfig())
		previous := ActionManualReview
		for confidence := 0.0; confidence <= 1.0; confidence += 0.01 {
			action := r.Route(model.Classification{Confidence: confidence}, evidence)
			assert.LessOrEqual(t, strictness[action], strictness[previous],
				"outcome got stricter as confidence rose to %.2f", confidence)
			previous = action
		}
	}
}

func TestMissingEvidence(t *testing.T) {
	r := New(DefaultConfig())

	missing := r.MissingEvidence(service.EvidenceState{"success_criteria": true, "value_estimate": true})
	assert.Equal(t, []string{"risk_constraints", "sponsorship"}, missing)

	assert.Nil(t, r.MissingEvidence(completeEvidence()))
}

func TestEvidenceComplete(t *testing.T) {
	required := []string{"a", "b"}

	assert.True(t, service.EvidenceState{"a": true, "b": true}.Complete(required))
	assert.False(t, service.EvidenceState{"a": true}.Complete(required))
	assert.True(t, service.EvidenceState{}.Complete(nil))
}
