// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// SessionFilter defines filtering options for session queries.
type SessionFilter struct {
	Status *model.SessionStatus
	Limit  int
	Offset int
}

// Storage defines the contract for our persistence layer. The pipeline core
// never touches storage directly; the orchestrator and CLI do, through this
// interface.
type Storage interface {
	// Decision matrix operations. Versions are immutable once saved.
	SaveMatrix(ctx context.Context, matrix *model.DecisionMatrix) error
	GetMatrix(ctx context.Context, version string) (*model.DecisionMatrix, error)
	GetActiveMatrix(ctx context.Context) (*model.DecisionMatrix, error)
	GetLatestMatrixVersion(ctx context.Context) (string, error)
	ListMatrices(ctx context.Context) ([]model.DecisionMatrix, error)
	ActivateMatrix(ctx context.Context, version string) error

	// Session operations. Q&A history is append-only.
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	AppendQA(ctx context.Context, sessionID string, qa []model.ClarificationQA) error
	UpdateSessionState(ctx context.Context, sessionID string, state model.InterviewState, status model.SessionStatus) error
	SaveClassification(ctx context.Context, sessionID string, classification *model.Classification) error

	// Evaluation audit records.
	SaveEvaluation(ctx context.Context, sessionID string, result *model.EvaluationResult) error
	GetEvaluation(ctx context.Context, sessionID string) (*model.EvaluationResult, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// EvidenceState tracks which strategically-required evidence keys have been
// gathered for a conversation, from either a Q&A exchange or an extracted
// attribute.
type EvidenceState map[string]bool

// Complete reports whether every required key is satisfied.
func (e EvidenceState) Complete(required []string) bool {
	for _, key := range required {
		if !e[key] {
			return false
		}
	}
	return true
}

// QuestionBatch is one round of candidate clarifying questions from the
// question-generation capability. A batch with zero questions and
// ShouldClarify false legitimately signals "interview complete"; that is
// distinct from a generation failure.
type QuestionBatch struct {
	Questions     []string
	ShouldClarify bool
	Reason        string
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
