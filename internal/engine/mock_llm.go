package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// MockClassifier is a test implementation of the Classifier interface. It
// returns deterministic classifications based on keywords in the process
// description.
type MockClassifier struct {
	// Err, when set, is returned from every call.
	Err error
	// ConfidenceBoost is added per answered question, simulating the model
	// growing more certain as the interview progresses.
	ConfidenceBoost float64

	mu    sync.Mutex
	calls int
}

// GenerateClassification provides deterministic classifications keyed on
// description content.
func (m *MockClassifier) GenerateClassification(_ context.Context, description string, history []model.ClarificationQA) (model.Classification, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return model.Classification{}, m.Err
	}

	lower := strings.ToLower(description)

	var classification model.Classification
	switch {
	case strings.Contains(lower, "duplicate") || strings.Contains(lower, "obsolete"):
		classification = model.Classification{
			Category:   model.CategoryEliminate,
			Confidence: 0.90,
			Rationale:  "The process produces no output anyone consumes.",
		}
	case strings.Contains(lower, "paper") || strings.Contains(lower, "spreadsheet"):
		classification = model.Classification{
			Category:   model.CategoryDigitise,
			Confidence: 0.82,
			Rationale:  "Manual paper handling with a clear digital equivalent.",
		}
	case strings.Contains(lower, "copy") || strings.Contains(lower, "re-key") || strings.Contains(lower, "data entry"):
		classification = model.Classification{
			Category:   model.CategoryRPA,
			Confidence: 0.78,
			Rationale:  "Deterministic data movement between systems.",
		}
	case strings.Contains(lower, "judgement") || strings.Contains(lower, "triage"):
		classification = model.Classification{
			Category:   model.CategoryAIAgent,
			Confidence: 0.70,
			Rationale:  "Requires interpretation of unstructured input.",
		}
	case strings.Contains(lower, "autonomous") || strings.Contains(lower, "end-to-end"):
		classification = model.Classification{
			Category:   model.CategoryAgenticAI,
			Confidence: 0.65,
			Rationale:  "Multi-step goal pursuit across systems.",
		}
	default:
		classification = model.Classification{
			Category:   model.CategorySimplify,
			Confidence: 0.60,
			Rationale:  "Process has redundant approval steps.",
		}
	}

	classification.Confidence = model.Clamp01(classification.Confidence + m.ConfidenceBoost*float64(len(history)))
	return classification, nil
}

// Calls reports how many classification calls were made.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockQuestionGenerator returns scripted question batches round by round,
// then empty batches once the script runs out.
type MockQuestionGenerator struct {
	// Rounds are served in order, one per call.
	Rounds []service.QuestionBatch
	// Err, when set, is returned from every call.
	Err error

	mu   sync.Mutex
	next int
}

// GenerateQuestions serves the next scripted batch.
func (m *MockQuestionGenerator) GenerateQuestions(_ context.Context, _ string, _ model.Classification, _ []model.ClarificationQA) (service.QuestionBatch, error) {
	if m.Err != nil {
		return service.QuestionBatch{}, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next >= len(m.Rounds) {
		return service.QuestionBatch{Reason: "no further questions"}, nil
	}

	batch := m.Rounds[m.next]
	m.next++
	return batch, nil
}

// MockExtractor is a test implementation of the AttributeExtractor interface.
type MockExtractor struct {
	// Values, keyed by attribute name, are returned for declared attributes;
	// undeclared names fall back to unknown.
	Values map[string]model.ExtractedAttributeValue
	// Err, when set, is returned from every call.
	Err error
}

// ExtractAttributes resolves every declared attribute, defaulting to unknown.
func (m *MockExtractor) ExtractAttributes(_ context.Context, _ string, _ []model.ClarificationQA, attributes []model.Attribute) (map[string]model.ExtractedAttributeValue, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	out := make(map[string]model.ExtractedAttributeValue, len(attributes))
	for _, attr := range attributes {
		if value, ok := m.Values[attr.Name]; ok {
			out[attr.Name] = value
			continue
		}
		out[attr.Name] = model.ExtractedAttributeValue{
			Value:       model.UnknownValue,
			Explanation: "not determinable from the conversation",
		}
	}
	return out, nil
}
