package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
	"github.com/vibelabapp/vibelab-server/internal/id"
	"github.com/vibelabapp/vibelab-server/internal/notify"
	"github.com/vibelabapp/vibelab-server/internal/ratelimit"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

const (
	// Per-IP attempt budgets for the authentication endpoints.
	defaultLoginLimit    = 10
	defaultRegisterLimit = 5
	defaultAttemptWindow = 15 * time.Minute
)

// AuthLimits configures the fixed-window budgets applied to login and
// registration attempts. Zero values fall back to the defaults.
type AuthLimits struct {
	LoginLimit    int
	RegisterLimit int
	Window        time.Duration
}

func (l AuthLimits) withDefaults() AuthLimits {
	if l.LoginLimit <= 0 {
		l.LoginLimit = defaultLoginLimit
	}
	if l.RegisterLimit <= 0 {
		l.RegisterLimit = defaultRegisterLimit
	}
	if l.Window <= 0 {
		l.Window = defaultAttemptWindow
	}
	return l
}

// AuthService orchestrates login and registration: rate limiting,
// credential verification, invitation redemption, and token issuance.
type AuthService struct {
	store      store.Store
	tokens     *auth.TokenService
	attempts   *ratelimit.Window
	notifier   notify.Notifier
	logger     *slog.Logger
	limits     AuthLimits
	baseURL    string
	adminEmail string
}

// NewAuthService creates a new authentication service. baseURL is the
// externally reachable server URL used to build approval links.
// adminEmail overrides the recipient for pending-approval notifications;
// when empty, the first admin account is resolved per registration.
func NewAuthService(
	store store.Store,
	tokens *auth.TokenService,
	attempts *ratelimit.Window,
	notifier notify.Notifier,
	logger *slog.Logger,
	limits AuthLimits,
	baseURL string,
	adminEmail string,
) *AuthService {
	return &AuthService{
		store:      store,
		tokens:     tokens,
		attempts:   attempts,
		notifier:   notifier,
		logger:     logger,
		limits:     limits.withDefaults(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminEmail: adminEmail,
	}
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"` // Extracted from request by handler
}

// LoginResponse contains the session token and the authenticated user.
type LoginResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RegisterRequest contains user registration data. InviteToken is the
// opaque invitation token and is optional: without it the account goes
// through open registration and waits for admin approval.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	InviteToken string `json:"invite_token"`
	IPAddress   string `json:"-"` // Extracted from request by handler
}

// RegisterResponse contains the result of a registration request.
// Registration never issues a session token; the user logs in separately
// once approved.
type RegisterResponse struct {
	UserID           string `json:"user_id"`
	RequiresApproval bool   `json:"requires_approval"`
	Message          string `json:"message"`
}

// Login authenticates a user and issues a session token.
// Lookup and verification failures share one generic error so callers
// cannot probe which emails have accounts.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if err := s.checkAttempt("login:"+req.IPAddress, s.limits.LoginLimit); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	if !user.IsApproved {
		return nil, domainerrors.Forbidden("your account is pending admin approval")
	}

	token, err := s.tokens.IssueSession(auth.SessionClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "email", user.Email)

	return &LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.SessionDuration()),
	}, nil
}

// Register creates a new account. With an invitation token the account's
// approval state comes from the invitation and its consumption is atomic
// with the user insert. Without one the account waits for admin approval
// and an administrator is notified out-of-band.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if err := s.checkAttempt("register:"+req.IPAddress, s.limits.RegisterLimit); err != nil {
		return nil, err
	}

	_, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, domainerrors.AlreadyExists("email already in use")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	var invitation *domain.Invitation
	if req.InviteToken != "" {
		invitation, err = s.redeemableInvitation(ctx, req.InviteToken, req.Email)
		if err != nil {
			return nil, err
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := id.MustGenerate("user")
	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		IsApproved:   invitation != nil && invitation.AutoApprove,
		IsAdmin:      false,
		CreatedAt:    time.Now(),
	}

	if invitation != nil {
		err = s.store.CreateUserWithInvitation(ctx, user, invitation.ID)
	} else {
		err = s.store.CreateUser(ctx, user)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.AlreadyExists("email already in use")
		case errors.Is(err, store.ErrInvitationExhausted):
			// Lost the race for the invitation's last use.
			return nil, domainerrors.Validation("invitation has no remaining uses")
		case errors.Is(err, store.ErrNotFound):
			// Invitation revoked since the pre-check.
			return nil, domainerrors.NotFound("invitation not found")
		default:
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", userID,
		"email", user.Email,
		"approved", user.IsApproved,
		"invited", invitation != nil)

	if !user.IsApproved {
		s.notifyPendingApproval(ctx, user)
	}

	resp := &RegisterResponse{
		UserID:           userID,
		RequiresApproval: !user.IsApproved,
		Message:          "Registration complete. You can now log in.",
	}
	if resp.RequiresApproval {
		resp.Message = "Registration submitted. Please wait for admin approval."
	}
	return resp, nil
}

// checkAttempt records one attempt against the fixed-window budget and
// converts a denial into a RateLimited error carrying the window reset time.
func (s *AuthService) checkAttempt(key string, limit int) error {
	verdict := s.attempts.Attempt(key, limit, s.limits.Window)
	if verdict.Allowed {
		return nil
	}
	return domainerrors.RateLimited("too many attempts, please try again later").
		WithDetails(map[string]any{"reset_at": verdict.ResetAt})
}

// redeemableInvitation loads an invitation by its opaque token and checks
// every redemption precondition. The use-budget check repeats inside the
// registration transaction; this pass exists to give specific errors
// before any work is done.
func (s *AuthService) redeemableInvitation(ctx context.Context, token, email string) (*domain.Invitation, error) {
	invitation, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("lookup invitation: %w", err)
	}

	if invitation.IsExpired() {
		return nil, domainerrors.Validation("invitation has expired")
	}
	if invitation.IsExhausted() {
		return nil, domainerrors.Validation("invitation has no remaining uses")
	}
	// Invitations are not transferable.
	if !strings.EqualFold(strings.TrimSpace(invitation.Email), strings.TrimSpace(email)) {
		return nil, domainerrors.Validation("invitation was issued to a different email")
	}
	return invitation, nil
}

// notifyPendingApproval tells an administrator about a new unapproved
// account. Notification failures are logged and swallowed; they must not
// abort the registration that triggered them.
func (s *AuthService) notifyPendingApproval(ctx context.Context, user *domain.User) {
	recipient := s.adminEmail
	if recipient == "" {
		admin, err := s.store.FirstAdmin(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "no admin to notify about pending approval",
				"user_id", user.ID, "error", err)
			return
		}
		recipient = admin.Email
	}

	token, err := s.tokens.IssueApprove(auth.ApproveClaims{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to issue approve token", "user_id", user.ID, "error", err)
		return
	}

	link := s.baseURL + "/api/approve?token=" + token
	if err := s.notifier.UserPendingApproval(ctx, recipient, user, link); err != nil {
		s.logger.WarnContext(ctx, "failed to send pending approval notification",
			"user_id", user.ID, "recipient", recipient, "error", err)
	}
}
