package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

// CreateGrant records that a user may open a private experiment.
// Returns store.ErrAlreadyExists if the grant is already present.
func (s *Store) CreateGrant(ctx context.Context, grant *domain.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_experiments (user_id, experiment_id, created_at)
		VALUES (?, ?, ?)`,
		grant.UserID,
		grant.ExperimentID,
		formatTime(grant.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteGrant removes a grant.
// Returns store.ErrNotFound if no such grant exists.
func (s *Store) DeleteGrant(ctx context.Context, userID, experimentID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM user_experiments WHERE user_id = ? AND experiment_id = ?`,
		userID, experimentID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GrantExists reports whether a user holds a grant for an experiment.
func (s *Store) GrantExists(ctx context.Context, userID, experimentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM user_experiments WHERE user_id = ? AND experiment_id = ?`,
		userID, experimentID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListGrantsForUser returns all grants held by a user, newest first.
func (s *Store) ListGrantsForUser(ctx context.Context, userID string) ([]*domain.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, experiment_id, created_at FROM user_experiments
		WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*domain.Grant
	for rows.Next() {
		var g domain.Grant
		var createdAt string
		if err := rows.Scan(&g.UserID, &g.ExperimentID, &createdAt); err != nil {
			return nil, err
		}
		g.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}
