package model

import "time"

// SessionStatus tracks where a classification conversation is in its lifecycle.
type SessionStatus string

// Session status constants.
const (
	SessionGathering  SessionStatus = "GATHERING"
	SessionClassified SessionStatus = "CLASSIFIED"
	SessionEscalated  SessionStatus = "ESCALATED"
)

// Session is one classification conversation: the process description, the
// accumulated Q&A, the interview state snapshot, and the final result once
// the pipeline stops asking questions.
type Session struct {
	ID             string            `json:"id"`
	Description    string            `json:"description"`
	Status         SessionStatus     `json:"status"`
	State          InterviewState    `json:"state"`
	History        []ClarificationQA `json:"history"`
	Classification *Classification   `json:"classification,omitempty"`
	Evaluation     *EvaluationResult `json:"evaluation,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}
