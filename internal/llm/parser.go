package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// cleanMarkdownWrapper strips the ```json fences models like to wrap JSON in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// parseClassification decodes a classification response.
func parseClassification(content string) (model.Classification, error) {
	var resp struct {
		Category            string   `json:"category"`
		Confidence          float64  `json:"confidence"`
		Rationale           string   `json:"rationale"`
		CategoryProgression string   `json:"categoryProgression"`
		FutureOpportunities []string `json:"futureOpportunities"`
	}

	cleaned := cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return model.Classification{}, fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	category, err := model.ParseCategory(resp.Category)
	if err != nil {
		return model.Classification{}, err
	}

	return model.Classification{
		Category:            category,
		Confidence:          model.Clamp01(resp.Confidence),
		Rationale:           resp.Rationale,
		CategoryProgression: resp.CategoryProgression,
		FutureOpportunities: resp.FutureOpportunities,
	}, nil
}

// questionsPayload is the wire shape for a question generation round.
type questionsPayload struct {
	Questions     []string `json:"questions"`
	ShouldClarify bool     `json:"shouldClarify"`
	Reason        string   `json:"reason"`
}

// parseQuestions decodes a question generation response.
func parseQuestions(content string) (questionsPayload, error) {
	var resp questionsPayload

	cleaned := cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return questionsPayload{}, fmt.Errorf("failed to parse questions JSON: %w", err)
	}

	// Drop blank questions rather than asking them.
	kept := resp.Questions[:0]
	for _, q := range resp.Questions {
		if strings.TrimSpace(q) != "" {
			kept = append(kept, q)
		}
	}
	resp.Questions = kept

	return resp, nil
}

// parseAttributes decodes an attribute extraction response, filling in
// "unknown" for any declared attribute the model omitted.
func parseAttributes(content string, declared []model.Attribute) (map[string]model.ExtractedAttributeValue, error) {
	var resp map[string]model.ExtractedAttributeValue

	cleaned := cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse attributes JSON: %w", err)
	}

	out := make(map[string]model.ExtractedAttributeValue, len(declared))
	for _, attr := range declared {
		value, ok := resp[attr.Name]
		if !ok || strings.TrimSpace(value.Value) == "" {
			value = model.ExtractedAttributeValue{
				Value:       model.UnknownValue,
				Explanation: "the model could not determine this attribute",
			}
		}
		out[attr.Name] = value
	}

	return out, nil
}
