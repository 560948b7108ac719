package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
)

// SaveMatrix persists a new decision matrix version. Versions are immutable:
// a version that already exists is rejected, and every new version must be
// strictly greater than the latest stored one. When the matrix is marked
// active, any previously active version is deactivated in the same
// transaction.
func (s *SQLiteStorage) SaveMatrix(ctx context.Context, matrix *model.DecisionMatrix) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if matrix == nil {
		return fmt.Errorf("%w: matrix", ErrNilParameter)
	}
	if err := validateString(matrix.Version, "matrix.Version"); err != nil {
		return err
	}

	payload, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("failed to marshal matrix: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latest sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT MAX(version) FROM matrices`).Scan(&latest)
	if err != nil {
		return fmt.Errorf("failed to query latest matrix version: %w", err)
	}

	if latest.Valid {
		rows, err := tx.QueryContext(ctx, `SELECT version FROM matrices`)
		if err != nil {
			return fmt.Errorf("failed to list matrix versions: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var existing string
			if err := rows.Scan(&existing); err != nil {
				return fmt.Errorf("failed to scan matrix version: %w", err)
			}
			cmp, err := model.CompareVersions(matrix.Version, existing)
			if err != nil {
				return fmt.Errorf("failed to compare versions: %w", err)
			}
			if cmp == 0 {
				return fmt.Errorf("%w: version %s", common.ErrDuplicateEntry, matrix.Version)
			}
			if cmp < 0 {
				return fmt.Errorf("%w: %s is not greater than %s", common.ErrVersionConflict, matrix.Version, existing)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate matrix versions: %w", err)
		}
	}

	if matrix.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE matrices SET active = 0 WHERE active = 1`); err != nil {
			return fmt.Errorf("failed to deactivate previous matrix: %w", err)
		}
	}

	createdAt := matrix.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	active := 0
	if matrix.Active {
		active = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matrices (version, payload, description, created_by, created_at, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		matrix.Version, string(payload), matrix.Description, matrix.CreatedBy, createdAt, active)
	if err != nil {
		return fmt.Errorf("failed to insert matrix: %w", err)
	}

	return tx.Commit()
}

// GetMatrix retrieves a decision matrix by version.
func (s *SQLiteStorage) GetMatrix(ctx context.Context, version string) (*model.DecisionMatrix, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(version, "version"); err != nil {
		return nil, err
	}

	return s.scanMatrix(s.db.QueryRowContext(ctx,
		`SELECT payload, active FROM matrices WHERE version = ?`, version))
}

// GetActiveMatrix retrieves the currently active decision matrix. It returns
// common.ErrNoActiveMatrix when no version is active.
func (s *SQLiteStorage) GetActiveMatrix(ctx context.Context) (*model.DecisionMatrix, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	matrix, err := s.scanMatrix(s.db.QueryRowContext(ctx,
		`SELECT payload, active FROM matrices WHERE active = 1`))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoActiveMatrix
	}
	return matrix, err
}

// GetLatestMatrixVersion returns the highest stored matrix version, or
// common.ErrNotFound when no matrices exist.
func (s *SQLiteStorage) GetLatestMatrixVersion(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT version FROM matrices`)
	if err != nil {
		return "", fmt.Errorf("failed to list matrix versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := ""
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return "", fmt.Errorf("failed to scan matrix version: %w", err)
		}
		if latest == "" {
			latest = version
			continue
		}
		cmp, err := model.CompareVersions(version, latest)
		if err != nil {
			return "", fmt.Errorf("failed to compare versions: %w", err)
		}
		if cmp > 0 {
			latest = version
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate matrix versions: %w", err)
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no matrices stored", common.ErrNotFound)
	}
	return latest, nil
}

// ListMatrices returns all stored matrices, newest version first.
func (s *SQLiteStorage) ListMatrices(ctx context.Context) ([]model.DecisionMatrix, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, active FROM matrices ORDER BY created_at DESC, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matrices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matrices []model.DecisionMatrix
	for rows.Next() {
		var payload string
		var active int
		if err := rows.Scan(&payload, &active); err != nil {
			return nil, fmt.Errorf("failed to scan matrix: %w", err)
		}
		var matrix model.DecisionMatrix
		if err := json.Unmarshal([]byte(payload), &matrix); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matrix: %w", err)
		}
		matrix.Active = active == 1
		matrices = append(matrices, matrix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matrices: %w", err)
	}
	return matrices, nil
}

// ActivateMatrix marks the given version active and deactivates all others.
func (s *SQLiteStorage) ActivateMatrix(ctx context.Context, version string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(version, "version"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM matrices WHERE version = ?`, version).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check matrix existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: matrix version %s", common.ErrNotFound, version)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE matrices SET active = 0 WHERE active = 1`); err != nil {
		return fmt.Errorf("failed to deactivate matrices: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE matrices SET active = 1 WHERE version = ?`, version); err != nil {
		return fmt.Errorf("failed to activate matrix: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStorage) scanMatrix(row *sql.Row) (*model.DecisionMatrix, error) {
	var payload string
	var active int
	err := row.Scan(&payload, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: matrix", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan matrix: %w", err)
	}

	var matrix model.DecisionMatrix
	if err := json.Unmarshal([]byte(payload), &matrix); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matrix: %w", err)
	}
	matrix.Active = active == 1
	return &matrix, nil
}
