package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/notify"
	"github.com/vibelabapp/vibelab-server/internal/ratelimit"
	"github.com/vibelabapp/vibelab-server/internal/store"
	"github.com/vibelabapp/vibelab-server/internal/store/sqlite"
)

// testEnv bundles all services over one temporary store.
type testEnv struct {
	store       store.Store
	tokens      *auth.TokenService
	attempts    *ratelimit.Window
	logger      *slog.Logger
	auths       *AuthService
	sessions    *SessionService
	invites     *InviteService
	experiments *ExperimentService
	admins      *AdminService
	artifactDir string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(key, time.Hour, 7*24*time.Hour)
	require.NoError(t, err)

	attempts := ratelimit.NewWindow(time.Minute)
	t.Cleanup(attempts.Stop)

	artifactDir := filepath.Join(dir, "experiments")
	require.NoError(t, os.MkdirAll(artifactDir, 0o755))

	notifier := notify.Noop{}
	baseURL := "http://localhost:8080"

	return &testEnv{
		store:       s,
		tokens:      tokens,
		attempts:    attempts,
		logger:      logger,
		auths:       NewAuthService(s, tokens, attempts, notifier, logger, AuthLimits{}, baseURL, ""),
		sessions:    NewSessionService(s, tokens, logger),
		invites:     NewInviteService(s, notifier, logger, baseURL),
		experiments: NewExperimentService(s, logger, artifactDir),
		admins:      NewAdminService(s, tokens, notifier, logger),
		artifactDir: artifactDir,
	}
}

// mustCreateUser inserts a user with the given flags and a valid hash for
// the supplied password.
func (e *testEnv) mustCreateUser(t *testing.T, email, password string, approved, admin bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &domain.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		IsApproved:   approved,
		IsAdmin:      admin,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) adminPrincipal(t *testing.T) *domain.Principal {
	t.Helper()
	admin := e.mustCreateUser(t, "admin@example.com", "AdminPassword1!", true, true)
	return &domain.Principal{UserID: admin.ID, Email: admin.Email, IsAdmin: true, IsApproved: true}
}

func (e *testEnv) memberPrincipal(t *testing.T) *domain.Principal {
	t.Helper()
	member := e.mustCreateUser(t, "member@example.com", "MemberPassword1!", true, false)
	return &domain.Principal{UserID: member.ID, Email: member.Email, IsAdmin: false, IsApproved: true}
}
