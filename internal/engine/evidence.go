package engine

import (
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// evidenceKeywords maps each strategic evidence key to the terms whose
// presence in a Q&A exchange or extracted attribute satisfies it.
var evidenceKeywords = map[string][]string{
	"success_criteria": {"success", "criteria", "kpi", "measure", "outcome"},
	"risk_constraints": {"risk", "constraint", "compliance", "regulat", "blocker"},
	"value_estimate":   {"value", "saving", "benefit", "cost", "roi", "hours"},
	"sponsorship":      {"sponsor", "owner", "stakeholder", "budget holder"},
}

// GatherEvidence derives the evidence state for a conversation. An evidence
// key counts as gathered once a Q&A exchange with a real answer touches its
// terms, or an extracted attribute of the same name resolved to a known
// value.
func GatherEvidence(history []model.ClarificationQA, attrs map[string]model.ExtractedAttributeValue) service.EvidenceState {
	evidence := make(service.EvidenceState, len(evidenceKeywords))

	for key, keywords := range evidenceKeywords {
		evidence[key] = false

		for _, qa := range history {
			if strings.TrimSpace(qa.Answer) == "" {
				continue
			}
			text := strings.ToLower(qa.Question + " " + qa.Answer)
			for _, keyword := range keywords {
				if strings.Contains(text, keyword) {
					evidence[key] = true
					break
				}
			}
			if evidence[key] {
				break
			}
		}
	}

	for name, value := range attrs {
		if _, tracked := evidenceKeywords[name]; tracked && !value.IsUnknown() {
			evidence[name] = true
		}
	}

	return evidence
}
