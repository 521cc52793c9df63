package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelabapp/vibelab-server/internal/domain"
)

func TestListUsers_StripsPasswordHashes(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)
	member := ts.createUser("member@example.com", "password123", true, false)
	exp := ts.createExperiment("wave-sim", "wave-sim.html", false)
	require.NoError(t, ts.store.CreateGrant(t.Context(), &domain.Grant{
		UserID:       member.ID,
		ExperimentID: exp.ID,
	}))

	rec := ts.request(http.MethodGet, "/api/admin/users", nil, ts.sessionFor(admin))
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope[struct {
		Users []map[string]any `json:"users"`
		Count int              `json:"count"`
	}](t, rec)

	assert.Equal(t, 2, envelope.Data.Count)
	for _, u := range envelope.Data.Users {
		assert.NotContains(t, u, "password_hash")
		assert.NotEmpty(t, u["email"])
		if u["id"] == member.ID {
			assert.Equal(t, []any{exp.ID}, u["experiment_ids"])
		}
	}
}

func TestUpdateUser_Approve(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)
	pending := ts.createUser("pending@example.com", "password123", false, false)

	rec := ts.request(http.MethodPatch, "/api/admin/users/"+pending.ID, map[string]any{
		"is_approved": true,
	}, ts.sessionFor(admin))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope[map[string]any](t, rec)
	assert.Equal(t, true, envelope.Data["is_approved"])

	// The user can log in now.
	login := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "pending@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestUpdateUser_SelfDemotionRejected(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodPatch, "/api/admin/users/"+admin.ID, map[string]any{
		"is_admin": false,
	}, ts.sessionFor(admin))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUser_UnknownUser(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodPatch, "/api/admin/users/no-such-user", map[string]any{
		"is_approved": true,
	}, ts.sessionFor(admin))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)
	member := ts.createUser("member@example.com", "password123", true, false)
	memberToken := ts.sessionFor(member)

	rec := ts.request(http.MethodDelete, "/api/admin/users/"+member.ID, nil, ts.sessionFor(admin))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The deleted user's still-valid token no longer resolves.
	me := ts.request(http.MethodGet, "/api/auth/me", nil, memberToken)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestDeleteUser_SelfDeletionRejected(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodDelete, "/api/admin/users/"+admin.ID, nil, ts.sessionFor(admin))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIssueInvitation_FullFlow(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodPost, "/api/admin/invitations", map[string]any{
		"email":        "invited@example.com",
		"max_uses":     1,
		"auto_approve": true,
	}, ts.sessionFor(admin))

	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope[struct {
		domain.Invitation
		URL string `json:"url"`
	}](t, rec)
	require.NotEmpty(t, envelope.Data.Token)
	assert.Contains(t, envelope.Data.URL, envelope.Data.Token)

	// The issued token redeems through registration.
	register := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":        "invited@example.com",
		"password":     "password123",
		"invite_token": envelope.Data.Token,
	}, "")
	require.Equal(t, http.StatusCreated, register.Code)

	login := ts.request(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "invited@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestIssueInvitation_MemberForbidden(t *testing.T) {
	ts := setupTestServer(t)
	member := ts.createUser("member@example.com", "password123", true, false)

	rec := ts.request(http.MethodPost, "/api/admin/invitations", map[string]any{
		"email": "invited@example.com",
	}, ts.sessionFor(member))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListInvitations(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		rec := ts.request(http.MethodPost, "/api/admin/invitations", map[string]any{
			"email": email,
		}, ts.sessionFor(admin))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.request(http.MethodGet, "/api/admin/invitations", nil, ts.sessionFor(admin))
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope[struct {
		Count int `json:"count"`
	}](t, rec)
	assert.Equal(t, 2, envelope.Data.Count)
}

func TestRevokeInvitation(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.createUser("admin@example.com", "password123", true, true)

	rec := ts.request(http.MethodPost, "/api/admin/invitations", map[string]any{
		"email": "invited@example.com",
	}, ts.sessionFor(admin))
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope[domain.Invitation](t, rec)

	del := ts.request(http.MethodDelete, "/api/admin/invitations/"+envelope.Data.ID, nil, ts.sessionFor(admin))
	require.Equal(t, http.StatusNoContent, del.Code)

	// A revoked token no longer redeems.
	register := ts.request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":        "invited@example.com",
		"password":     "password123",
		"invite_token": envelope.Data.Token,
	}, "")
	assert.Equal(t, http.StatusNotFound, register.Code)
}
