package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
	"github.com/vibelabapp/vibelab-server/internal/id"
	"github.com/vibelabapp/vibelab-server/internal/store"
	"github.com/vibelabapp/vibelab-server/internal/util"
)

// ExperimentService manages the experiment catalog, the per-user access
// policy, and serving experiment artifacts from the artifact root.
type ExperimentService struct {
	store        store.Store
	logger       *slog.Logger
	artifactRoot string
}

func NewExperimentService(store store.Store, logger *slog.Logger, artifactRoot string) *ExperimentService {
	return &ExperimentService{
		store:        store,
		logger:       logger,
		artifactRoot: artifactRoot,
	}
}

// CreateExperimentRequest contains the data needed to register an experiment.
type CreateExperimentRequest struct {
	Slug        string `json:"slug" validate:"required,max=100"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	FilePath    string `json:"file_path" validate:"required,max=255"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateExperimentRequest contains a full replacement for an experiment's
// mutable fields.
type UpdateExperimentRequest struct {
	Slug        string `json:"slug" validate:"required,max=100"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	FilePath    string `json:"file_path" validate:"required,max=255"`
	IsPublic    bool   `json:"is_public"`
}

// CheckAccess decides whether a principal may open an experiment.
// Existence is checked before privilege, so a missing slug is NotFound for
// everyone. Access requires admin, a public experiment, or a grant row.
func (s *ExperimentService) CheckAccess(ctx context.Context, principal *domain.Principal, slug string) (*domain.Experiment, error) {
	exp, err := s.store.GetExperimentBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("experiment not found")
		}
		return nil, fmt.Errorf("lookup experiment: %w", err)
	}

	if principal.IsAdmin || exp.IsPublic {
		return exp, nil
	}

	granted, err := s.store.GrantExists(ctx, principal.UserID, exp.ID)
	if err != nil {
		return nil, fmt.Errorf("check grant: %w", err)
	}
	if !granted {
		return nil, domainerrors.Forbidden("you do not have access to this experiment")
	}
	return exp, nil
}

// Open runs the access check and reads the experiment's artifact.
// The artifact path is reduced to its basename and joined to the
// configured root, so catalog rows cannot point outside it.
func (s *ExperimentService) Open(ctx context.Context, principal *domain.Principal, slug string) (*domain.Experiment, []byte, error) {
	exp, err := s.CheckAccess(ctx, principal, slug)
	if err != nil {
		return nil, nil, err
	}

	path := filepath.Join(s.artifactRoot, filepath.Base(exp.FilePath))
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "experiment artifact missing",
				"experiment_id", exp.ID, "path", path)
			return nil, nil, domainerrors.NotFound("experiment artifact not found")
		}
		return nil, nil, fmt.Errorf("read artifact: %w", err)
	}
	return exp, content, nil
}

// ListForPrincipal returns the experiments the principal may open.
// Admins see the whole catalog.
func (s *ExperimentService) ListForPrincipal(ctx context.Context, principal *domain.Principal) ([]*domain.Experiment, error) {
	var (
		exps []*domain.Experiment
		err  error
	)
	if principal.IsAdmin {
		exps, err = s.store.ListExperiments(ctx)
	} else {
		exps, err = s.store.ListExperimentsForUser(ctx, principal.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	return exps, nil
}

// Create registers a new experiment in the catalog. Admin only.
func (s *ExperimentService) Create(ctx context.Context, principal *domain.Principal, req CreateExperimentRequest) (*domain.Experiment, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can create experiments")
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	slug := util.NormalizeSlug(req.Slug)
	if slug == "" {
		return nil, domainerrors.Validation("slug must contain at least one letter or digit")
	}

	exp := &domain.Experiment{
		ID:          id.MustGenerate("exp"),
		Slug:        slug,
		Title:       req.Title,
		Description: req.Description,
		FilePath:    filepath.Base(req.FilePath),
		IsPublic:    req.IsPublic,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateExperiment(ctx, exp); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an experiment with this slug already exists")
		}
		return nil, fmt.Errorf("create experiment: %w", err)
	}

	s.logger.InfoContext(ctx, "experiment created",
		"experiment_id", exp.ID, "slug", exp.Slug, "created_by", principal.UserID)
	return exp, nil
}

// Update replaces an experiment's mutable fields. Admin only.
func (s *ExperimentService) Update(ctx context.Context, principal *domain.Principal, experimentID string, req UpdateExperimentRequest) (*domain.Experiment, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can update experiments")
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	slug := util.NormalizeSlug(req.Slug)
	if slug == "" {
		return nil, domainerrors.Validation("slug must contain at least one letter or digit")
	}

	exp, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("experiment not found")
		}
		return nil, fmt.Errorf("lookup experiment: %w", err)
	}

	exp.Slug = slug
	exp.Title = req.Title
	exp.Description = req.Description
	exp.FilePath = filepath.Base(req.FilePath)
	exp.IsPublic = req.IsPublic

	if err := s.store.UpdateExperiment(ctx, exp); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.AlreadyExists("an experiment with this slug already exists")
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("experiment not found")
		default:
			return nil, fmt.Errorf("update experiment: %w", err)
		}
	}
	return exp, nil
}

// Delete removes an experiment and, via the schema, its grants. Admin only.
func (s *ExperimentService) Delete(ctx context.Context, principal *domain.Principal, experimentID string) error {
	if !principal.IsAdmin {
		return domainerrors.Forbidden("only admins can delete experiments")
	}
	if err := s.store.DeleteExperiment(ctx, experimentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("experiment not found")
		}
		return fmt.Errorf("delete experiment: %w", err)
	}
	s.logger.InfoContext(ctx, "experiment deleted",
		"experiment_id", experimentID, "deleted_by", principal.UserID)
	return nil
}

// Grant gives a user access to a private experiment. Admin only.
func (s *ExperimentService) Grant(ctx context.Context, principal *domain.Principal, userID, experimentID string) error {
	if !principal.IsAdmin {
		return domainerrors.Forbidden("only admins can grant access")
	}

	// Both referenced rows must exist so the error is precise instead of
	// a bare foreign key violation.
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if _, err := s.store.GetExperiment(ctx, experimentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("experiment not found")
		}
		return fmt.Errorf("lookup experiment: %w", err)
	}

	grant := &domain.Grant{
		UserID:       userID,
		ExperimentID: experimentID,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domainerrors.Conflict("user already has access to this experiment")
		}
		return fmt.Errorf("create grant: %w", err)
	}

	s.logger.InfoContext(ctx, "access granted",
		"user_id", userID, "experiment_id", experimentID, "granted_by", principal.UserID)
	return nil
}

// RevokeGrant removes a user's access to an experiment. Admin only.
func (s *ExperimentService) RevokeGrant(ctx context.Context, principal *domain.Principal, userID, experimentID string) error {
	if !principal.IsAdmin {
		return domainerrors.Forbidden("only admins can revoke access")
	}
	if err := s.store.DeleteGrant(ctx, userID, experimentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("grant not found")
		}
		return fmt.Errorf("delete grant: %w", err)
	}
	s.logger.InfoContext(ctx, "access revoked",
		"user_id", userID, "experiment_id", experimentID, "revoked_by", principal.UserID)
	return nil
}
