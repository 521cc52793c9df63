package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelabapp/vibelab-server/internal/domain"
)

func TestRegister_OpenRegistration(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "newuser@example.com",
		"password": "password123",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope[map[string]any](t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, true, envelope.Data["requires_approval"])
	assert.NotEmpty(t, envelope.Data["user_id"])
	// Registration never hands out a session token.
	assert.NotContains(t, envelope.Data, "token")
}

func TestRegister_InvalidBody(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodPost, "/api/auth/register", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing email",
			body: map[string]any{"password": "password123"},
		},
		{
			name: "invalid email format",
			body: map[string]any{"email": "not-an-email", "password": "password123"},
		},
		{
			name: "password too short",
			body: map[string]any{"email": "short@example.com", "password": "short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.request(http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser("taken@example.com", "password123", true, false)

	rec := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "Taken@Example.com",
		"password": "password123",
	}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_WithInvitation(t *testing.T) {
	ts := setupTestServer(t)

	inv := &domain.Invitation{
		ID:          "inv-1",
		Email:       "invited@example.com",
		Token:       "opaque-invite-token",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		MaxUses:     1,
		AutoApprove: true,
		CreatedBy:   "admin-1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, ts.store.CreateInvitation(context.Background(), inv))

	rec := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":        "invited@example.com",
		"password":     "password123",
		"invite_token": "opaque-invite-token",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope[map[string]any](t, rec)
	assert.Equal(t, false, envelope.Data["requires_approval"])
}

func TestRegister_UnknownInvitationToken(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":        "someone@example.com",
		"password":     "password123",
		"invite_token": "no-such-token",
	}, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_Success(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser("login@example.com", "password123", true, false)

	rec := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "login@example.com",
		"password": "password123",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope[map[string]any](t, rec)
	assert.True(t, envelope.Success)
	token, _ := envelope.Data["token"].(string)
	assert.NotEmpty(t, token)

	user, ok := envelope.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "login@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	// Session cookie is set for browser clients.
	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, token, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)

	// The body token works as a Bearer credential.
	me := ts.request(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser("victim@example.com", "password123", true, false)

	known := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "victim@example.com",
		"password": "wrong-password",
	}, "")
	unknown := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "wrong-password",
	}, "")

	// Unknown email and wrong password are indistinguishable.
	assert.Equal(t, http.StatusUnauthorized, known.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestLogin_PendingApproval(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser("pending@example.com", "password123", false, false)

	rec := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "pending@example.com",
		"password": "password123",
	}, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope[any](t, rec)
	assert.Contains(t, envelope.Error, "pending")
}

func TestLogout_ClearsCookie(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Empty(t, sessionCookie.Value)
	assert.Negative(t, sessionCookie.MaxAge)
}

func TestApproveByToken(t *testing.T) {
	ts := setupTestServer(t)

	// Register a pending account through the API.
	rec := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "pending@example.com",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Mint an approval link token the way the notifier flow does.
	envelope := decodeEnvelope[map[string]any](t, rec)
	userID, _ := envelope.Data["user_id"].(string)
	require.NotEmpty(t, userID)

	token := ts.approveTokenFor(userID, "pending@example.com")

	approve := ts.request(http.MethodGet, "/api/approve?token="+token, nil, "")
	require.Equal(t, http.StatusOK, approve.Code)

	// The account can log in now.
	login := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "pending@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestApproveByToken_MissingToken(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodGet, "/api/approve", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveByToken_SessionTokenRejected(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.createUser("pending@example.com", "password123", false, false)

	// A session token is not an approval token even though both come from
	// the same key.
	rec := ts.request(http.MethodGet, "/api/approve?token="+ts.sessionFor(user), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
