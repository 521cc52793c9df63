package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

// SessionService resolves opaque session tokens back to a Principal.
type SessionService struct {
	store  store.Store
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewSessionService(store store.Store, tokens *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Resolve verifies a session token and re-validates it against the user
// store. The returned Principal reflects the user row as it is NOW, not
// as it was at issuance: a demoted admin loses admin on the next request,
// and deleting or un-approving a user kills their outstanding sessions.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired session")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid or expired session")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsApproved {
		return nil, domainerrors.Unauthorized("invalid or expired session")
	}

	return &domain.Principal{
		UserID:     user.ID,
		Email:      user.Email,
		IsAdmin:    user.IsAdmin,
		IsApproved: user.IsApproved,
	}, nil
}
