package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

const experimentColumns = `id, slug, title, description, file_path, is_public, created_at`

func scanExperiment(scanner interface{ Scan(dest ...any) error }) (*domain.Experiment, error) {
	var exp domain.Experiment

	var (
		isPublic  int
		createdAt string
	)

	err := scanner.Scan(
		&exp.ID,
		&exp.Slug,
		&exp.Title,
		&exp.Description,
		&exp.FilePath,
		&isPublic,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	exp.IsPublic = isPublic != 0

	exp.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &exp, nil
}

// CreateExperiment inserts a new experiment.
// Returns store.ErrAlreadyExists if the slug is taken.
func (s *Store) CreateExperiment(ctx context.Context, exp *domain.Experiment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO experiments (id, slug, title, description, file_path, is_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exp.ID,
		exp.Slug,
		exp.Title,
		exp.Description,
		exp.FilePath,
		boolToInt(exp.IsPublic),
		formatTime(exp.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetExperiment retrieves an experiment by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)

	exp, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// GetExperimentBySlug retrieves an experiment by its URL slug.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetExperimentBySlug(ctx context.Context, slug string) (*domain.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE slug = ?`, slug)

	exp, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// ListExperiments returns all experiments ordered by slug.
func (s *Store) ListExperiments(ctx context.Context) ([]*domain.Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments ORDER BY slug ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectExperiments(rows)
}

// ListExperimentsForUser returns the experiments a user can open: every
// public experiment plus those the user holds a grant for, ordered by slug.
func (s *Store) ListExperimentsForUser(ctx context.Context, userID string) ([]*domain.Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+experimentColumns+` FROM experiments
		WHERE is_public = 1
		   OR id IN (SELECT experiment_id FROM user_experiments WHERE user_id = ?)
		ORDER BY slug ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectExperiments(rows)
}

func collectExperiments(rows *sql.Rows) ([]*domain.Experiment, error) {
	var exps []*domain.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		exps = append(exps, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exps, nil
}

// UpdateExperiment performs a full row update on an existing experiment.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) UpdateExperiment(ctx context.Context, exp *domain.Experiment) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE experiments SET
			slug = ?,
			title = ?,
			description = ?,
			file_path = ?,
			is_public = ?
		WHERE id = ?`,
		exp.Slug,
		exp.Title,
		exp.Description,
		exp.FilePath,
		boolToInt(exp.IsPublic),
		exp.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
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

// DeleteExperiment removes an experiment. Grants cascade via foreign keys.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteExperiment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
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
