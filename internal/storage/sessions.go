package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/Ready2k/CatalAIst-sub004/internal/service"
)

// CreateSession persists a new classification session, including any Q&A
// history it already carries.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.Session) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("failed to marshal interview state: %w", err)
	}

	now := time.Now().UTC()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, description, status, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Description, string(session.Status), string(state), createdAt, updatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: session %s", common.ErrDuplicateEntry, session.ID)
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, qa := range session.History {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_qa (session_id, question, answer) VALUES (?, ?, ?)`,
			session.ID, qa.Question, qa.Answer); err != nil {
			return fmt.Errorf("failed to insert session history: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession retrieves a session with its Q&A history, current
// classification, and evaluation record hydrated.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var session model.Session
	var status, state string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, description, status, state, created_at, updated_at
		FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.Description, &status, &state, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session.Status = model.SessionStatus(status)
	if err := json.Unmarshal([]byte(state), &session.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interview state: %w", err)
	}

	history, err := s.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	session.History = history

	classification, err := s.loadClassification(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Classification = classification

	evaluation, err := s.GetEvaluation(ctx, id)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	session.Evaluation = evaluation

	return &session, nil
}

// ListSessions returns sessions matching the filter, newest first.
func (s *SQLiteStorage) ListSessions(ctx context.Context, filter service.SessionFilter) ([]model.Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id FROM sessions`
	args := []interface{}{}
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	sessions := make([]model.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// AppendQA appends question/answer pairs to a session's history. History is
// append-only; existing rows are never touched.
func (s *SQLiteStorage) AppendQA(ctx context.Context, sessionID string, qa []model.ClarificationQA) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if len(qa) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	for _, pair := range qa {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_qa (session_id, question, answer) VALUES (?, ?, ?)`,
			sessionID, pair.Question, pair.Answer); err != nil {
			return fmt.Errorf("failed to append Q&A: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return tx.Commit()
}

// UpdateSessionState persists the session's interview state and status.
func (s *SQLiteStorage) UpdateSessionState(ctx context.Context, sessionID string, state model.InterviewState, status model.SessionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal interview state: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET state = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(payload), string(status), time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	return nil
}

// SaveClassification stores the session's current classification, replacing
// any earlier one.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, sessionID string, classification *model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if classification == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}

	opportunities, err := json.Marshal(classification.FutureOpportunities)
	if err != nil {
		return fmt.Errorf("failed to marshal future opportunities: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classifications (session_id, category, confidence, rationale, category_progression, future_opportunities, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			rationale = excluded.rationale,
			category_progression = excluded.category_progression,
			future_opportunities = excluded.future_opportunities,
			classified_at = excluded.classified_at`,
		sessionID, string(classification.Category), classification.Confidence,
		classification.Rationale, classification.CategoryProgression,
		string(opportunities), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return tx.Commit()
}

// SaveEvaluation stores the rules-engine evaluation audit record for a
// session.
func (s *SQLiteStorage) SaveEvaluation(ctx context.Context, sessionID string, result *model.EvaluationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	flagged := 0
	if result.FlaggedForReview {
		flagged = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluations (session_id, matrix_version, payload, flagged_for_review)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			matrix_version = excluded.matrix_version,
			payload = excluded.payload,
			flagged_for_review = excluded.flagged_for_review`,
		sessionID, result.MatrixVersion, string(payload), flagged)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return tx.Commit()
}

// GetEvaluation retrieves the evaluation audit record for a session.
func (s *SQLiteStorage) GetEvaluation(ctx context.Context, sessionID string) (*model.EvaluationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM evaluations WHERE session_id = ?`, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: evaluation for session %s", common.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	var result model.EvaluationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}
	return &result, nil
}

func (s *SQLiteStorage) loadHistory(ctx context.Context, sessionID string) ([]model.ClarificationQA, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer FROM session_qa WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.ClarificationQA
	for rows.Next() {
		var qa model.ClarificationQA
		if err := rows.Scan(&qa.Question, &qa.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan Q&A: %w", err)
		}
		history = append(history, qa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session history: %w", err)
	}
	return history, nil
}

func (s *SQLiteStorage) loadClassification(ctx context.Context, sessionID string) (*model.Classification, error) {
	var c model.Classification
	var category, opportunities string
	err := s.db.QueryRowContext(ctx, `
		SELECT category, confidence, rationale, category_progression, future_opportunities
		FROM classifications WHERE session_id = ?`, sessionID).
		Scan(&category, &c.Confidence, &c.Rationale, &c.CategoryProgression, &opportunities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan classification: %w", err)
	}

	c.Category = model.TransformationCategory(category)
	if opportunities != "" {
		if err := json.Unmarshal([]byte(opportunities), &c.FutureOpportunities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal future opportunities: %w", err)
		}
	}
	return &c, nil
}

func sessionExists(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	return nil
}
