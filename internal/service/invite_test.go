package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
)

func TestInviteService_Issue(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)

	resp, err := env.invites.Issue(ctx, admin, IssueInvitationRequest{
		Email:       "alice@example.com",
		MaxUses:     3,
		AutoApprove: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, 3, resp.MaxUses)
	assert.Equal(t, 0, resp.UsedCount)
	assert.True(t, resp.AutoApprove)
	assert.Equal(t, admin.UserID, resp.CreatedBy)
	assert.Contains(t, resp.URL, resp.Token)
	// 32 random bytes base64url-encoded.
	assert.GreaterOrEqual(t, len(resp.Token), 43)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), resp.ExpiresAt, time.Minute)
}

func TestInviteService_Issue_Defaults(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminPrincipal(t)

	resp, err := env.invites.Issue(context.Background(), admin, IssueInvitationRequest{
		Email: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.MaxUses)
	assert.False(t, resp.AutoApprove)
}

func TestInviteService_Issue_NotAdmin(t *testing.T) {
	env := setupTestEnv(t)
	member := env.memberPrincipal(t)

	_, err := env.invites.Issue(context.Background(), member, IssueInvitationRequest{
		Email: "alice@example.com",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden), "got %v", err)
}

func TestInviteService_Issue_ExistingAccount(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminPrincipal(t)
	env.mustCreateUser(t, "alice@example.com", "SecurePassword1!", true, false)

	_, err := env.invites.Issue(context.Background(), admin, IssueInvitationRequest{
		Email: "alice@example.com",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrAlreadyExists), "got %v", err)
}

func TestInviteService_List(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)

	_, err := env.invites.Issue(ctx, admin, IssueInvitationRequest{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = env.invites.Issue(ctx, admin, IssueInvitationRequest{Email: "b@example.com"})
	require.NoError(t, err)

	invs, err := env.invites.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, invs, 2)

	member := env.memberPrincipal(t)
	_, err = env.invites.List(ctx, member)
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden), "got %v", err)
}

func TestInviteService_Revoke(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)

	resp, err := env.invites.Issue(ctx, admin, IssueInvitationRequest{Email: "alice@example.com"})
	require.NoError(t, err)

	require.NoError(t, env.invites.Revoke(ctx, admin, resp.ID))

	// A revoked invitation can no longer be used to register.
	_, err = env.auths.Register(ctx, RegisterRequest{
		Email:       "alice@example.com",
		Password:    "SecurePassword1!",
		InviteToken: resp.Token,
		IPAddress:   "10.0.0.1",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)

	err = env.invites.Revoke(ctx, admin, resp.ID)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}
