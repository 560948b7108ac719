package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidStatus = errors.New("invalid session status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSession validates a session before persisting it.
func validateSession(session *model.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := validateString(session.ID, "session.ID"); err != nil {
		return err
	}
	if err := validateString(session.Description, "session.Description"); err != nil {
		return err
	}
	return validateStatus(session.Status)
}

// validateStatus ensures the status is one of the known session statuses.
func validateStatus(status model.SessionStatus) error {
	switch status {
	case model.SessionGathering, model.SessionClassified, model.SessionEscalated:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}
