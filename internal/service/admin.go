package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
	"github.com/vibelabapp/vibelab-server/internal/notify"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

// AdminService handles user administration: listing, approval, role
// changes, and deletion.
type AdminService struct {
	store    store.Store
	tokens   *auth.TokenService
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewAdminService(store store.Store, tokens *auth.TokenService, notifier notify.Notifier, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// UpdateUserRequest carries the admin-settable account flags. Pointer
// fields distinguish "leave unchanged" from an explicit false.
type UpdateUserRequest struct {
	IsApproved *bool `json:"is_approved"`
	IsAdmin    *bool `json:"is_admin"`
}

// Ping verifies the backing store responds to a cheap read.
func (s *AdminService) Ping(ctx context.Context) error {
	_, err := s.store.CountUsers(ctx)
	return err
}

// UserWithGrants pairs an account with the IDs of the experiments it
// holds explicit grants for.
type UserWithGrants struct {
	*domain.User
	ExperimentIDs []string `json:"experiment_ids"`
}

// ListUsers returns every account along with its grants. Admin only.
func (s *AdminService) ListUsers(ctx context.Context, principal *domain.Principal) ([]*UserWithGrants, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can list users")
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*UserWithGrants, 0, len(users))
	for _, user := range users {
		grants, err := s.store.ListGrantsForUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list grants for user %s: %w", user.ID, err)
		}
		experimentIDs := make([]string, 0, len(grants))
		for _, g := range grants {
			experimentIDs = append(experimentIDs, g.ExperimentID)
		}
		out = append(out, &UserWithGrants{User: user, ExperimentIDs: experimentIDs})
	}
	return out, nil
}

// UpdateUser changes a user's approval or admin flags. Admins cannot
// strip their own admin bit; demotion must come from another admin so
// the instance cannot lock itself out.
func (s *AdminService) UpdateUser(ctx context.Context, principal *domain.Principal, userID string, req UpdateUserRequest) (*domain.User, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can update users")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if req.IsAdmin != nil && !*req.IsAdmin && userID == principal.UserID {
		return nil, domainerrors.Conflict("admins cannot remove their own admin role")
	}

	wasApproved := user.IsApproved
	if req.IsApproved != nil {
		user.IsApproved = *req.IsApproved
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if !wasApproved && user.IsApproved {
		s.notifyApproved(ctx, user)
	}

	s.logger.InfoContext(ctx, "user updated",
		"user_id", user.ID,
		"approved", user.IsApproved,
		"admin", user.IsAdmin,
		"updated_by", principal.UserID)
	return user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, principal *domain.Principal, userID string) error {
	if !principal.IsAdmin {
		return domainerrors.Forbidden("only admins can delete users")
	}
	if userID == principal.UserID {
		return domainerrors.Conflict("admins cannot delete their own account")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted", "user_id", userID, "deleted_by", principal.UserID)
	return nil
}

// ApproveByToken approves the account named in a signed approval token.
// The link lands in an administrator's inbox, so possession of a valid
// token stands in for an authenticated admin session. Approving an
// already-approved account is a no-op success.
func (s *AdminService) ApproveByToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ParseApprove(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired approval token")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsApproved {
		return user, nil
	}

	user.IsApproved = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.notifyApproved(ctx, user)
	s.logger.InfoContext(ctx, "user approved via token", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *AdminService) notifyApproved(ctx context.Context, user *domain.User) {
	if err := s.notifier.UserApproved(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to send approval notification",
			"user_id", user.ID, "error", err)
	}
}
