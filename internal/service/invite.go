package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
	"github.com/vibelabapp/vibelab-server/internal/id"
	"github.com/vibelabapp/vibelab-server/internal/notify"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

const (
	// inviteTokenSize is the number of random bytes in an invitation
	// token. 32 bytes keeps the token out of brute-force range; it is a
	// bare lookup key, not a signed claim, so an invitation dies the
	// moment its row is deleted.
	inviteTokenSize = 32

	// defaultInviteExpiry is the time until an invitation expires.
	defaultInviteExpiry = 7 * 24 * time.Hour
)

// InviteService handles invitation issuance, listing, and revocation.
// Redemption lives in AuthService.Register, where it is atomic with
// account creation.
type InviteService struct {
	store    store.Store
	notifier notify.Notifier
	logger   *slog.Logger
	baseURL  string
}

func NewInviteService(store store.Store, notifier notify.Notifier, logger *slog.Logger, baseURL string) *InviteService {
	return &InviteService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// IssueInvitationRequest contains the data needed to issue an invitation.
type IssueInvitationRequest struct {
	Email         string `json:"email" validate:"required,email"`
	MaxUses       int    `json:"max_uses" validate:"min=0"`
	ExpiresInDays int    `json:"expires_in_days" validate:"min=0"` // 0 = default (7 days)
	AutoApprove   bool   `json:"auto_approve"`
}

// InvitationResponse is an invitation plus the shareable registration link.
type InvitationResponse struct {
	*domain.Invitation
	URL string `json:"url"`
}

// Issue creates a new invitation. Only admins may issue invitations.
func (s *InviteService) Issue(ctx context.Context, principal *domain.Principal, req IssueInvitationRequest) (*InvitationResponse, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can issue invitations")
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	// Inviting an existing account is a no-op waiting to happen.
	_, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, domainerrors.AlreadyExists("a user with this email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	maxUses := req.MaxUses
	if maxUses <= 0 {
		maxUses = 1
	}
	expiresIn := defaultInviteExpiry
	if req.ExpiresInDays > 0 {
		expiresIn = time.Duration(req.ExpiresInDays) * 24 * time.Hour
	}

	invitation := &domain.Invitation{
		ID:          id.MustGenerate("invite"),
		Email:       req.Email,
		Token:       token,
		ExpiresAt:   time.Now().Add(expiresIn),
		MaxUses:     maxUses,
		UsedCount:   0,
		AutoApprove: req.AutoApprove,
		CreatedBy:   principal.UserID,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateInvitation(ctx, invitation); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("invitation token collision, retry")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	link := s.baseURL + "/register?invite=" + token
	if err := s.notifier.InvitationCreated(ctx, invitation, link); err != nil {
		s.logger.WarnContext(ctx, "failed to send invitation notification",
			"invitation_id", invitation.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "invitation issued",
		"invitation_id", invitation.ID,
		"email", invitation.Email,
		"max_uses", invitation.MaxUses,
		"auto_approve", invitation.AutoApprove,
		"issued_by", principal.UserID)

	return &InvitationResponse{Invitation: invitation, URL: link}, nil
}

// List returns all invitations, newest first. Admin only.
func (s *InviteService) List(ctx context.Context, principal *domain.Principal) ([]*domain.Invitation, error) {
	if !principal.IsAdmin {
		return nil, domainerrors.Forbidden("only admins can list invitations")
	}
	invitations, err := s.store.ListInvitations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// Revoke deletes an invitation, killing its remaining uses. Admin only.
func (s *InviteService) Revoke(ctx context.Context, principal *domain.Principal, invitationID string) error {
	if !principal.IsAdmin {
		return domainerrors.Forbidden("only admins can revoke invitations")
	}
	if err := s.store.DeleteInvitation(ctx, invitationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("invitation not found")
		}
		return fmt.Errorf("delete invitation: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation revoked",
		"invitation_id", invitationID, "revoked_by", principal.UserID)
	return nil
}

// generateInviteToken returns a URL-safe random token.
func generateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
