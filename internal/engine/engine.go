// Package engine orchestrates the classification pipeline: LLM
// classification, confidence routing, the clarification interview loop, and
// decision matrix evaluation over the accumulated answers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/interview"
	"github.com/Ready2k/CatalAIst-sub004/internal/matrix"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/router"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// Outcome is what a pipeline round produced.
type Outcome string

// Round outcomes.
const (
	// OutcomeQuestions means the interview continues with more questions.
	OutcomeQuestions Outcome = "questions"
	// OutcomeClassified means a final classification was produced.
	OutcomeClassified Outcome = "classified"
	// OutcomeEscalated means the conversation needs a human reviewer.
	OutcomeEscalated Outcome = "escalated"
)

// Round is the result of one pipeline step: either the next questions to put
// to the user, or a finished session.
type Round struct {
	Session    *model.Session
	Questions  []string
	Outcome    Outcome
	StopReason model.StopReason
	Warning    model.StopReason
}

// Config holds configuration for the pipeline.
type Config struct {
	Router    router.Config
	Interview interview.Config
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Router:    router.DefaultConfig(),
		Interview: interview.DefaultConfig(),
	}
}

// Engine sequences the classification pipeline for a session.
type Engine struct {
	storage    service.Storage
	classifier Classifier
	questions  QuestionGenerator
	extractor  AttributeExtractor
	router     *router.Router
	interview  *interview.Controller
}

// New creates a pipeline engine with default configuration.
func New(storage service.Storage, classifier Classifier, questions QuestionGenerator, extractor AttributeExtractor) *Engine {
	return NewWithConfig(storage, classifier, questions, extractor, DefaultConfig())
}

// NewWithConfig creates a pipeline engine with custom configuration.
func NewWithConfig(storage service.Storage, classifier Classifier, questions QuestionGenerator, extractor AttributeExtractor, config Config) *Engine {
	return &Engine{
		storage:    storage,
		classifier: classifier,
		questions:  questions,
		extractor:  extractor,
		router:     router.New(config.Router),
		interview:  interview.New(config.Interview),
	}
}

// StartSession classifies a fresh process description and decides the first
// step: auto-accept, first round of questions, or escalation. Classification
// failure is fatal and propagates to the caller.
func (e *Engine) StartSession(ctx context.Context, description string) (*Round, error) {
	classification, err := e.classifier.GenerateClassification(ctx, description, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}
	classification.ClampConfidence()

	session := &model.Session{
		ID:             uuid.NewString(),
		Description:    description,
		Status:         model.SessionGathering,
		State:          model.NewInterviewState(),
		Classification: &classification,
	}

	if err := e.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("session started",
		"session_id", session.ID,
		"category", classification.Category,
		"confidence", classification.Confidence)

	return e.advance(ctx, session, classification, nil, false)
}

// SubmitAnswers feeds a batch of clarification answers into a gathering
// session and runs the next pipeline round.
func (e *Engine) SubmitAnswers(ctx context.Context, sessionID string, answers []string, manualSkip bool) (*Round, error) {
	session, err := e.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Status != model.SessionGathering {
		return nil, common.ErrSessionFinished
	}

	// Pair answers with the most recently asked questions, append-only.
	if len(answers) > 0 {
		qa := pairAnswers(session.State, answers)
		if err := e.storage.AppendQA(ctx, session.ID, qa); err != nil {
			return nil, fmt.Errorf("failed to append answers: %w", err)
		}
		session.History = append(session.History, qa...)
	}

	// Re-classify with the enriched history. A failing classification call
	// is fatal here just as it is on session start.
	classification, err := e.classifier.GenerateClassification(ctx, session.Description, session.History)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}
	classification.ClampConfidence()

	session.Classification = &classification
	if err := e.storage.SaveClassification(ctx, session.ID, &classification); err != nil {
		return nil, fmt.Errorf("failed to save classification: %w", err)
	}

	return e.advance(ctx, session, classification, answers, manualSkip)
}

// advance routes the current classification and either continues the
// interview or finalizes the session. Attribute extraction runs before
// routing so a resolved attribute can satisfy an evidence key; the extracted
// values are reused by finalize.
func (e *Engine) advance(ctx context.Context, session *model.Session, classification model.Classification, newAnswers []string, manualSkip bool) (*Round, error) {
	activeMatrix, err := e.activeMatrix(ctx)
	if err != nil {
		return nil, err
	}
	attrs := e.extractAttributes(ctx, session, activeMatrix)

	evidence := GatherEvidence(session.History, attrs)

	switch e.router.Route(classification, evidence) {
	case router.ActionAutoClassify:
		return e.finalize(ctx, session, classification, false, "", activeMatrix, attrs)
	case router.ActionManualReview:
		return e.finalize(ctx, session, classification, true, "", activeMatrix, attrs)
	}

	// Clarify: generate candidate questions unless the user asked to skip.
	var batch service.QuestionBatch
	if !manualSkip {
		batch, err = e.questions.GenerateQuestions(ctx, session.Description, classification, session.History)
		if err != nil {
			// A failed or unparseable generation round becomes an empty
			// batch; repeated empties trip the generation-loop guard.
			slog.Warn("question generation failed, treating as empty round",
				"session_id", session.ID,
				"error", err)
			batch = service.QuestionBatch{ShouldClarify: true}
		}

		if len(batch.Questions) == 0 && !batch.ShouldClarify {
			// The generator deliberately signalled a complete interview.
			// This holds from the very first round: a session with nothing
			// left to ask must finalize, not loop.
			slog.Info("question generator signalled interview complete",
				"session_id", session.ID,
				"reason", batch.Reason)
			return e.finalize(ctx, session, classification, false, "", activeMatrix, attrs)
		}
	}

	decision := e.interview.Decide(session.State, newAnswers, batch.Questions, manualSkip)
	session.State = decision.State

	if err := e.storage.UpdateSessionState(ctx, session.ID, session.State, session.Status); err != nil {
		return nil, fmt.Errorf("failed to persist interview state: %w", err)
	}

	if decision.Action == interview.ActionStop {
		slog.Info("interview stopped",
			"session_id", session.ID,
			"reason", decision.Reason,
			"questions_asked", session.State.QuestionsAsked)
		return e.finalize(ctx, session, classification, false, decision.Reason, activeMatrix, attrs)
	}

	if decision.Warning != "" {
		slog.Warn("interview is running long",
			"session_id", session.ID,
			"warning", decision.Warning,
			"questions_asked", session.State.QuestionsAsked)
	}

	return &Round{
		Session:   session,
		Questions: decision.Questions,
		Outcome:   OutcomeQuestions,
		Warning:   decision.Warning,
	}, nil
}

// activeMatrix loads the active decision matrix; absence is not an error and
// yields nil.
func (e *Engine) activeMatrix(ctx context.Context) (*model.DecisionMatrix, error) {
	m, err := e.storage.GetActiveMatrix(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrNoActiveMatrix):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load active matrix: %w", err)
	}
	return m, nil
}

// extractAttributes resolves the matrix's declared attributes from the
// conversation. Extraction failure degrades to nil: routing falls back to
// Q&A-derived evidence and finalize skips matrix evaluation.
func (e *Engine) extractAttributes(ctx context.Context, session *model.Session, activeMatrix *model.DecisionMatrix) map[string]model.ExtractedAttributeValue {
	if activeMatrix == nil {
		return nil
	}

	attrs, err := e.extractor.ExtractAttributes(ctx, session.Description, session.History, activeMatrix.Attributes)
	if err != nil {
		slog.Error("attribute extraction failed, using un-adjusted classification",
			"error", err,
			"session_id", session.ID,
			"matrix_version", activeMatrix.Version)
		return nil
	}
	return attrs
}

// finalize runs matrix evaluation over the attributes extracted for this
// round, then closes the session. A missing matrix or failed extraction
// (nil attrs) degrades to the raw classification with a nil evaluation.
func (e *Engine) finalize(ctx context.Context, session *model.Session, classification model.Classification, escalate bool, stopReason model.StopReason, activeMatrix *model.DecisionMatrix, attrs map[string]model.ExtractedAttributeValue) (*Round, error) {
	final := classification
	session.Evaluation = nil

	if activeMatrix != nil && attrs != nil {
		result := matrix.Evaluate(activeMatrix, classification, attrs)
		session.Evaluation = &result
		final = result.FinalClassification

		if err := e.storage.SaveEvaluation(ctx, session.ID, &result); err != nil {
			return nil, fmt.Errorf("failed to save evaluation: %w", err)
		}

		if result.FlaggedForReview {
			escalate = true
		}
	}

	session.Classification = &final
	if err := e.storage.SaveClassification(ctx, session.ID, &final); err != nil {
		return nil, fmt.Errorf("failed to save final classification: %w", err)
	}

	outcome := OutcomeClassified
	session.Status = model.SessionClassified
	if escalate {
		outcome = OutcomeEscalated
		session.Status = model.SessionEscalated
	}

	if err := e.storage.UpdateSessionState(ctx, session.ID, session.State, session.Status); err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	slog.Info("session finished",
		"session_id", session.ID,
		"outcome", outcome,
		"category", final.Category,
		"confidence", final.Confidence)

	return &Round{
		Session:    session,
		Outcome:    outcome,
		StopReason: stopReason,
	}, nil
}

// pairAnswers matches an answer batch against the most recent question round.
// Extra answers pair with an empty question rather than being dropped.
func pairAnswers(state model.InterviewState, answers []string) []model.ClarificationQA {
	var lastRound []string
	if len(state.RecentQuestions) > 0 {
		lastRound = state.RecentQuestions[len(state.RecentQuestions)-1]
	}

	qa := make([]model.ClarificationQA, len(answers))
	for i, answer := range answers {
		question := ""
		if i < len(lastRound) {
			question = lastRound[i]
		}
		qa[i] = model.ClarificationQA{Question: question, Answer: answer}
	}
	return qa
}
