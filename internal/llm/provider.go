package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// Provider implements the engine's Classifier, QuestionGenerator, and
// AttributeExtractor capabilities against a configured LLM API.
type Provider struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewProvider creates an LLM-backed capability provider.
func NewProvider(cfg Config, logger *slog.Logger) (*Provider, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Provider{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Close releases background resources.
func (p *Provider) Close() error {
	if p.rateLimiter != nil {
		p.rateLimiter.Close()
	}
	return nil
}

// GenerateClassification classifies a process description into one of the
// six transformation categories.
func (p *Provider) GenerateClassification(ctx context.Context, description string, history []model.ClarificationQA) (model.Classification, error) {
	if err := p.rateLimiter.wait(ctx); err != nil {
		return model.Classification{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildClassificationPrompt(description, history)

	var classification model.Classification

	err := common.WithRetry(ctx, func() error {
		response, err := p.client.Complete(ctx, classificationSystemPrompt, prompt)
		if err != nil {
			p.logger.Warn("classification attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		classification, err = parseClassification(response)
		if err != nil {
			p.logger.Warn("invalid classification from LLM", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		return nil
	}, p.retryOpts)

	if err != nil {
		return model.Classification{}, fmt.Errorf("classification failed: %w", err)
	}

	p.logger.Info("process classified",
		"category", classification.Category,
		"confidence", classification.Confidence)

	return classification, nil
}

// GenerateQuestions proposes the next clarifying questions. Unparseable
// output is returned as an error; the orchestrator downgrades it to an empty
// round.
func (p *Provider) GenerateQuestions(ctx context.Context, description string, classification model.Classification, history []model.ClarificationQA) (service.QuestionBatch, error) {
	if err := p.rateLimiter.wait(ctx); err != nil {
		return service.QuestionBatch{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildQuestionsPrompt(description, classification, history)

	response, err := p.client.Complete(ctx, questionsSystemPrompt, prompt)
	if err != nil {
		return service.QuestionBatch{}, fmt.Errorf("question generation failed: %w", err)
	}

	payload, err := parseQuestions(response)
	if err != nil {
		return service.QuestionBatch{}, err
	}

	p.logger.Debug("questions generated",
		"count", len(payload.Questions),
		"should_clarify", payload.ShouldClarify)

	return service.QuestionBatch{
		Questions:     payload.Questions,
		ShouldClarify: payload.ShouldClarify,
		Reason:        payload.Reason,
	}, nil
}

// ExtractAttributes resolves a value for every declared matrix attribute.
func (p *Provider) ExtractAttributes(ctx context.Context, description string, history []model.ClarificationQA, attributes []model.Attribute) (map[string]model.ExtractedAttributeValue, error) {
	if len(attributes) == 0 {
		return map[string]model.ExtractedAttributeValue{}, nil
	}

	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildExtractionPrompt(description, history, attributes)

	var attrs map[string]model.ExtractedAttributeValue

	err := common.WithRetry(ctx, func() error {
		response, err := p.client.Complete(ctx, extractionSystemPrompt, prompt)
		if err != nil {
			p.logger.Warn("attribute extraction attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		attrs, err = parseAttributes(response, attributes)
		if err != nil {
			p.logger.Warn("invalid attribute payload from LLM", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		return nil
	}, p.retryOpts)

	if err != nil {
		return nil, fmt.Errorf("attribute extraction failed: %w", err)
	}

	return attrs, nil
}

const classificationSystemPrompt = "You are a business transformation analyst. " +
	"Respond only with a single JSON object in the exact shape requested."

const questionsSystemPrompt = "You are a business analyst running a short clarification interview. " +
	"Respond only with a single JSON object in the exact shape requested."

const extractionSystemPrompt = "You extract structured business attributes from process descriptions. " +
	"Respond only with a single JSON object in the exact shape requested."

// buildClassificationPrompt creates the prompt for process classification.
func buildClassificationPrompt(description string, history []model.ClarificationQA) string {
	var categories strings.Builder
	for _, cat := range model.AllCategories() {
		fmt.Fprintf(&categories, "- %s\n", cat)
	}

	return fmt.Sprintf(`Classify this business process into exactly one transformation category.

Categories, ordered from least to most automated:
%s
Process description:
%s

%s

Instructions:
1. Pick the single best-fitting category.
2. Confidence is a probability between 0.0 and 1.0.
3. categoryProgression explains which later category could apply once prerequisites are met.
4. futureOpportunities lists concrete follow-on improvements, if any.

Respond with JSON only:
{"category": "...", "confidence": 0.0, "rationale": "...", "categoryProgression": "...", "futureOpportunities": ["..."]}`,
		categories.String(),
		description,
		formatHistory(history))
}

// buildQuestionsPrompt creates the prompt for clarification question generation.
func buildQuestionsPrompt(description string, classification model.Classification, history []model.ClarificationQA) string {
	return fmt.Sprintf(`You are clarifying a business process before final classification.

Process description:
%s

Current classification: %s (confidence %.2f)
Rationale: %s

%s

Instructions:
1. Ask at most 3 new questions that would most change the classification or its confidence.
2. Prioritize success criteria, risks and constraints, value estimate, and sponsorship if they are still unknown.
3. Never repeat a question that has already been asked.
4. If nothing useful remains to ask, return an empty questions list with shouldClarify false.

Respond with JSON only:
{"questions": ["..."], "shouldClarify": true, "reason": "..."}`,
		description,
		classification.Category,
		classification.Confidence,
		classification.Rationale,
		formatHistory(history))
}

// buildExtractionPrompt creates the prompt for attribute extraction.
func buildExtractionPrompt(description string, history []model.ClarificationQA, attributes []model.Attribute) string {
	var attrList strings.Builder
	for _, attr := range attributes {
		fmt.Fprintf(&attrList, "- %s (%s): %s", attr.Name, attr.Type, attr.Description)
		if len(attr.PossibleValues) > 0 {
			fmt.Fprintf(&attrList, " [one of: %s]", strings.Join(attr.PossibleValues, ", "))
		}
		attrList.WriteString("\n")
	}

	return fmt.Sprintf(`Extract the following business attributes from the process description and interview answers.

Attributes to extract:
%s
Process description:
%s

%s

Instructions:
1. Provide a value for EVERY attribute listed. Use "unknown" when the conversation does not determine it.
2. Each explanation cites the part of the conversation the value came from.

Respond with JSON only, keyed by attribute name:
{"attribute_name": {"value": "...", "explanation": "..."}}`,
		attrList.String(),
		description,
		formatHistory(history))
}

// formatHistory renders the Q&A history for inclusion in prompts.
func formatHistory(history []model.ClarificationQA) string {
	if len(history) == 0 {
		return "No clarification answers yet."
	}

	var b strings.Builder
	b.WriteString("Clarification history:\n")
	for _, qa := range history {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", qa.Question, qa.Answer)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
