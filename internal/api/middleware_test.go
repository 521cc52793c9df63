package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth_MissingToken(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.request(http.MethodGet, "/api/auth/me", nil, "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BearerToken(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.createUser("bearer@example.com", "password123", true, false)

	rec := ts.request(http.MethodGet, "/api/auth/me", nil, ts.sessionFor(user))
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope[map[string]any](t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, user.ID, envelope.Data["user_id"])
	assert.Equal(t, "bearer@example.com", envelope.Data["email"])
}

func TestRequireAuth_SessionCookie(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.createUser("cookie@example.com", "password123", true, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: ts.sessionFor(user)})

	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_DeletedUserTokenRejected(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.createUser("gone@example.com", "password123", true, false)
	token := ts.sessionFor(user)

	require.NoError(t, ts.store.DeleteUser(t.Context(), user.ID))

	rec := ts.request(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_MemberForbidden(t *testing.T) {
	ts := setupTestServer(t)
	member := ts.createUser("member@example.com", "password123", true, false)

	rec := ts.request(http.MethodGet, "/api/admin/users", nil, ts.sessionFor(member))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_AdminAllowed(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodGet, "/api/admin/users", nil, ts.sessionFor(admin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_ReflectsCurrentRole(t *testing.T) {
	ts := setupTestServer(t)
	user := ts.createUser("promoted@example.com", "password123", true, false)

	// Token was minted while the user was a plain member.
	token := ts.sessionFor(user)
	rec := ts.request(http.MethodGet, "/api/admin/users", nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Promotion takes effect on the next request with the same token,
	// because the principal reflects the current row.
	user.IsAdmin = true
	require.NoError(t, ts.store.UpdateUser(t.Context(), user))

	rec = ts.request(http.MethodGet, "/api/admin/users", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestSessionCookie_SecureOutsideDevelopment(t *testing.T) {
	s := &Server{sessionDuration: time.Hour, secureCookies: true}

	rec := httptest.NewRecorder()
	s.setSessionCookie(rec, "token-value")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	rec = httptest.NewRecorder()
	s.clearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestSessionCookie_PlainInDevelopment(t *testing.T) {
	s := &Server{sessionDuration: time.Hour}

	rec := httptest.NewRecorder()
	s.setSessionCookie(rec, "token-value")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.False(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
}
