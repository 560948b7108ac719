package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory service.Storage for pipeline tests.
type memStorage struct {
	mu           sync.Mutex
	sessions     map[string]*model.Session
	evaluations  map[string]*model.EvaluationResult
	activeMatrix *model.DecisionMatrix
}

func newMemStorage() *memStorage {
	return &memStorage{
		sessions:    make(map[string]*model.Session),
		evaluations: make(map[string]*model.EvaluationResult),
	}
}

func (m *memStorage) SaveMatrix(_ context.Context, matrix *model.DecisionMatrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if matrix.Active {
		m.activeMatrix = matrix
	}
	return nil
}

func (m *memStorage) GetMatrix(_ context.Context, version string) (*model.DecisionMatrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeMatrix != nil && m.activeMatrix.Version == version {
		return m.activeMatrix, nil
	}
	return nil, common.ErrNotFound
}

func (m *memStorage) GetActiveMatrix(_ context.Context) (*model.DecisionMatrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeMatrix == nil {
		return nil, common.ErrNoActiveMatrix
	}
	return m.activeMatrix, nil
}

func (m *memStorage) GetLatestMatrixVersion(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeMatrix == nil {
		return "", common.ErrNotFound
	}
	return m.activeMatrix.Version, nil
}

func (m *memStorage) ListMatrices(_ context.Context) ([]model.DecisionMatrix, error) {
	return nil, nil
}

func (m *memStorage) ActivateMatrix(_ context.Context, _ string) error {
	return nil
}

func (m *memStorage) CreateSession(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return common.ErrDuplicateEntry
	}
	copied := *session
	copied.History = append([]model.ClarificationQA(nil), session.History...)
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memStorage) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *stored
	copied.History = append([]model.ClarificationQA(nil), stored.History...)
	copied.State = stored.State.Clone()
	return &copied, nil
}

func (m *memStorage) ListSessions(_ context.Context, _ service.SessionFilter) ([]model.Session, error) {
	return nil, nil
}

func (m *memStorage) AppendQA(_ context.Context, sessionID string, qa []model.ClarificationQA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[sessionID]
	if !ok {
		return common.ErrNotFound
	}
	stored.History = append(stored.History, qa...)
	return nil
}

func (m *memStorage) UpdateSessionState(_ context.Context, sessionID string, state model.InterviewState, status model.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[sessionID]
	if !ok {
		return common.ErrNotFound
	}
	stored.State = state.Clone()
	stored.Status = status
	return nil
}

func (m *memStorage) SaveClassification(_ context.Context, sessionID string, classification *model.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[sessionID]
	if !ok {
		return common.ErrNotFound
	}
	copied := *classification
	stored.Classification = &copied
	return nil
}

func (m *memStorage) SaveEvaluation(_ context.Context, sessionID string, result *model.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *result
	m.evaluations[sessionID] = &copied
	return nil
}

func (m *memStorage) GetEvaluation(_ context.Context, sessionID string) (*model.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.evaluations[sessionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return result, nil
}

func (m *memStorage) Migrate(_ context.Context) error { return nil }
func (m *memStorage) Close() error                    { return nil }

// stubClassifier always returns the same classification.
type stubClassifier struct {
	classification model.Classification
	err            error
}

func (s *stubClassifier) GenerateClassification(_ context.Context, _ string, _ []model.ClarificationQA) (model.Classification, error) {
	if s.err != nil {
		return model.Classification{}, s.err
	}
	return s.classification, nil
}

func questionRounds(batches ...[]string) *MockQuestionGenerator {
	rounds := make([]service.QuestionBatch, len(batches))
	for i, questions := range batches {
		rounds[i] = service.QuestionBatch{Questions: questions, ShouldClarify: true}
	}
	return &MockQuestionGenerator{Rounds: rounds}
}

func TestStartSessionAsksQuestionsInMidBand(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?", "What volume arrives daily?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	assert.Equal(t, OutcomeQuestions, round.Outcome)
	assert.Len(t, round.Questions, 2)
	assert.Equal(t, model.SessionGathering, round.Session.Status)
	assert.Equal(t, model.CategoryDigitise, round.Session.Classification.Category)

	stored, err := store.GetSession(ctx, round.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.State.QuestionsAsked)
}

func TestStartSessionClassificationFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	pipeline := New(newMemStorage(),
		&stubClassifier{err: errors.New("provider unavailable")},
		questionRounds(), &MockExtractor{})

	round, err := pipeline.StartSession(ctx, "anything")
	assert.Nil(t, round)
	assert.ErrorIs(t, err, common.ErrClassificationFailed)
}

func TestStartSessionLowConfidenceEscalates(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&stubClassifier{classification: model.Classification{Category: model.CategoryAgenticAI, Confidence: 0.40}},
		questionRounds(), &MockExtractor{})

	round, err := pipeline.StartSession(ctx, "an opaque process nobody understands")
	require.NoError(t, err)

	assert.Equal(t, OutcomeEscalated, round.Outcome)
	assert.Equal(t, model.SessionEscalated, round.Session.Status)
}

// High confidence alone is not enough to auto-classify: the strategic
// evidence gate forces at least one clarification round first.
func TestEvidenceGateBlocksAutoClassify(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&stubClassifier{classification: model.Classification{Category: model.CategoryEliminate, Confidence: 0.97}},
		questionRounds(
			[]string{"Who sponsors this and what would success look like?"},
			[]string{"Any risks or value estimates?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "A report nobody reads is compiled weekly")
	require.NoError(t, err)
	require.Equal(t, OutcomeQuestions, round.Outcome)

	// One answer covering all four evidence areas unlocks auto-acceptance.
	answer := "The budget owner sponsors it; success criteria are measured in KPIs, " +
		"compliance risk is minimal, and the value saving is about 30 hours a month"
	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{answer}, false)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.SessionClassified, round.Session.Status)
}

func TestSubmitAnswersPairsWithLastRound(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds(
			[]string{"Is the input on paper forms?"},
			[]string{"Who owns the process?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{"Yes, all of it is paper"}, false)
	require.NoError(t, err)

	stored, err := store.GetSession(ctx, round.Session.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "Is the input on paper forms?", stored.History[0].Question)
	assert.Equal(t, "Yes, all of it is paper", stored.History[0].Answer)
}

func TestGeneratorCompleteSignalFinalizes(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	// One scripted round; afterwards the mock signals completion: no
	// questions and shouldClarify false.
	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)
	require.Equal(t, OutcomeQuestions, round.Outcome)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{"Yes"}, false)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
}

// A generator with nothing to ask from the very first round must finalize
// the session immediately, not hand back an empty question round.
func TestGeneratorCompleteOnFirstRoundFinalizes(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds(), // script exhausted immediately: complete signal
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.SessionClassified, round.Session.Status)
	assert.Empty(t, round.Questions)
}

// A caller that keeps feeding zero answers from zero-question rounds must
// still reach a terminal outcome within a bounded number of iterations.
func TestPersistentGenerationFailureTerminates(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		&MockQuestionGenerator{Err: errors.New("model returned prose, not JSON")},
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	// Mirror the interactive loop: each questions round yields one answer per
	// question, so empty rounds feed back empty answer batches.
	iterations := 0
	for round.Outcome == OutcomeQuestions {
		iterations++
		require.LessOrEqual(t, iterations, 10, "interview never terminates")

		answers := make([]string, len(round.Questions))
		for i := range answers {
			answers[i] = "an answer"
		}
		round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, answers, false)
		require.NoError(t, err)
	}

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.ReasonGenerationLoop, round.StopReason)
}

// Extracted attributes count as strategic evidence: a high-confidence
// classification auto-accepts without any interview when the matrix's
// attributes resolve every required key.
func TestExtractedAttributesUnlockEvidenceGate(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	require.NoError(t, store.SaveMatrix(ctx, &model.DecisionMatrix{
		Version: "1.0",
		Active:  true,
		Attributes: []model.Attribute{
			{Name: "success_criteria", Type: model.AttributeCategorical, PossibleValues: []string{"defined", "undefined"}, Weight: 0.3},
			{Name: "risk_constraints", Type: model.AttributeCategorical, PossibleValues: []string{"known", "unknown"}, Weight: 0.3},
			{Name: "value_estimate", Type: model.AttributeNumeric, Weight: 0.2},
			{Name: "sponsorship", Type: model.AttributeCategorical, PossibleValues: []string{"secured", "missing"}, Weight: 0.2},
		},
	}))

	pipeline := New(store,
		&stubClassifier{classification: model.Classification{Category: model.CategoryEliminate, Confidence: 0.97}},
		questionRounds([]string{"Should never be asked"}),
		&MockExtractor{Values: map[string]model.ExtractedAttributeValue{
			"success_criteria": {Value: "defined"},
			"risk_constraints": {Value: "known"},
			"value_estimate":   {Value: "40"},
			"sponsorship":      {Value: "secured"},
		}})

	round, err := pipeline.StartSession(ctx, "A report nobody reads is compiled weekly")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Empty(t, round.Questions)
}

// An unknown extracted attribute leaves its evidence key unsatisfied, so the
// gate still blocks auto-classification.
func TestUnknownAttributesKeepEvidenceGateClosed(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	require.NoError(t, store.SaveMatrix(ctx, &model.DecisionMatrix{
		Version: "1.0",
		Active:  true,
		Attributes: []model.Attribute{
			{Name: "sponsorship", Type: model.AttributeCategorical, PossibleValues: []string{"secured", "missing"}, Weight: 1.0},
		},
	}))

	pipeline := New(store,
		&stubClassifier{classification: model.Classification{Category: model.CategoryEliminate, Confidence: 0.97}},
		questionRounds([]string{"Who sponsors this work?"}),
		&MockExtractor{}) // every attribute resolves to unknown

	round, err := pipeline.StartSession(ctx, "A report nobody reads is compiled weekly")
	require.NoError(t, err)

	assert.Equal(t, OutcomeQuestions, round.Outcome)
	assert.Len(t, round.Questions, 1)
}

func TestManualSkipStopsAndClassifies(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.ReasonManualSkip, round.StopReason)
	assert.NotNil(t, round.Session.Classification)
}

func TestSubmitAnswersToFinishedSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	_, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	_, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{"late answer"}, false)
	assert.ErrorIs(t, err, common.ErrSessionFinished)
}

func TestGenerationFailureDegradesToEmptyRounds(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		&MockQuestionGenerator{Err: errors.New("model returned prose, not JSON")},
		&MockExtractor{})

	// Generation fails from the start: the first round carries no questions
	// but the session stays open.
	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)
	require.Equal(t, OutcomeQuestions, round.Outcome)
	assert.Empty(t, round.Questions)

	// Two consecutive failed rounds with answers present trip the
	// generation-loop guard.
	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{"some context"}, false)
	require.NoError(t, err)
	require.Equal(t, OutcomeQuestions, round.Outcome)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, []string{"more context"}, false)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.ReasonGenerationLoop, round.StopReason)
}

func flagReviewMatrix() *model.DecisionMatrix {
	return &model.DecisionMatrix{
		Version: "1.0",
		Active:  true,
		Attributes: []model.Attribute{
			{Name: "customer_facing", Type: model.AttributeBoolean, Weight: 0.5},
		},
		Rules: []model.Rule{
			{
				RuleID:   "r-review",
				Name:     "customer-facing needs sign-off",
				Priority: 10,
				Active:   true,
				Conditions: []model.Condition{
					{Attribute: "customer_facing", Operator: model.OpEqual, Value: model.BoolValue(true)},
				},
				Action: model.RuleAction{Type: model.ActionFlagReview, Rationale: "customer impact"},
			},
		},
	}
}

func TestFinalizeAppliesActiveMatrix(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	require.NoError(t, store.SaveMatrix(ctx, flagReviewMatrix()))

	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{Values: map[string]model.ExtractedAttributeValue{
			"customer_facing": {Value: "true", Explanation: "customers submit the forms"},
		}})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	// The flag_review rule escalates a session that would otherwise close
	// quietly.
	assert.Equal(t, OutcomeEscalated, round.Outcome)
	require.NotNil(t, round.Session.Evaluation)
	assert.True(t, round.Session.Evaluation.FlaggedForReview)
	assert.Equal(t, "1.0", round.Session.Evaluation.MatrixVersion)

	saved, err := store.GetEvaluation(ctx, round.Session.ID)
	require.NoError(t, err)
	assert.True(t, saved.FlaggedForReview)
}

func TestFinalizeOverrideChangesCategory(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	m := flagReviewMatrix()
	m.Attributes = append(m.Attributes, model.Attribute{
		Name: "data_structure", Type: model.AttributeCategorical,
		PossibleValues: []string{"structured", "unstructured"}, Weight: 0.8,
	})
	m.Rules = []model.Rule{
		{
			RuleID:   "r-rpa",
			Priority: 10,
			Active:   true,
			Conditions: []model.Condition{
				{Attribute: "data_structure", Operator: model.OpEqual, Value: model.StringValue("structured")},
			},
			Action: model.RuleAction{Type: model.ActionOverride, TargetCategory: json.RawMessage(`"RPA"`)},
		},
	}
	require.NoError(t, store.SaveMatrix(ctx, m))

	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{Values: map[string]model.ExtractedAttributeValue{
			"data_structure": {Value: "structured"},
		}})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.CategoryRPA, round.Session.Classification.Category)
	require.NotNil(t, round.Session.Evaluation)
	assert.True(t, round.Session.Evaluation.Overridden)
	assert.Equal(t, model.CategoryDigitise, round.Session.Evaluation.OriginalClassification.Category)
}

// Extraction failure must not fail the pipeline: the session closes with the
// un-adjusted classification and no evaluation record.
func TestExtractionFailureDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	require.NoError(t, store.SaveMatrix(ctx, flagReviewMatrix()))

	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{Err: errors.New("extraction timed out")})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Equal(t, model.CategoryDigitise, round.Session.Classification.Category)
	assert.Nil(t, round.Session.Evaluation)

	_, err = store.GetEvaluation(ctx, round.Session.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFinalizeWithoutActiveMatrixPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	pipeline := New(store,
		&MockClassifier{},
		questionRounds([]string{"Is the input on paper forms?"}),
		&MockExtractor{})

	round, err := pipeline.StartSession(ctx, "Team keys paper forms into the billing system")
	require.NoError(t, err)

	round, err = pipeline.SubmitAnswers(ctx, round.Session.ID, nil, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeClassified, round.Outcome)
	assert.Nil(t, round.Session.Evaluation)
	assert.Equal(t, model.CategoryDigitise, round.Session.Classification.Category)
}

func TestGatherEvidence(t *testing.T) {
	tests := []struct {
		name    string
		history []model.ClarificationQA
		attrs   map[string]model.ExtractedAttributeValue
		want    map[string]bool
	}{
		{
			name: "answer keywords satisfy keys",
			history: []model.ClarificationQA{
				{Question: "What would success look like?", Answer: "Fewer reworks; we measure KPI weekly"},
				{Question: "Any compliance concerns?", Answer: "GDPR risk on customer records"},
			},
			want: map[string]bool{
				"success_criteria": true,
				"risk_constraints": true,
				"value_estimate":   false,
				"sponsorship":      false,
			},
		},
		{
			name: "empty answers do not count",
			history: []model.ClarificationQA{
				{Question: "Who is the sponsor?", Answer: "   "},
			},
			want: map[string]bool{
				"success_criteria": false,
				"risk_constraints": false,
				"value_estimate":   false,
				"sponsorship":      false,
			},
		},
		{
			name: "known extracted attribute satisfies its key",
			attrs: map[string]model.ExtractedAttributeValue{
				"sponsorship":    {Value: "operations director"},
				"value_estimate": {Value: model.UnknownValue},
			},
			want: map[string]bool{
				"success_criteria": false,
				"risk_constraints": false,
				"value_estimate":   false,
				"sponsorship":      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence := GatherEvidence(tt.history, tt.attrs)
			for key, want := range tt.want {
				assert.Equal(t, want, evidence[key], fmt.Sprintf("key %s", key))
			}
		})
	}
}
