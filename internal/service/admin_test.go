package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	domainerrors "github.com/vibelabapp/vibelab-server/internal/errors"
)

func boolPtr(b bool) *bool { return &b }

func TestAdminService_ListUsers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)
	member := env.memberPrincipal(t)

	users, err := env.admins.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = env.admins.ListUsers(ctx, member)
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden), "got %v", err)
}

func TestAdminService_UpdateUser_Approve(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)

	pending := env.mustCreateUser(t, "pending@example.com", "SecurePassword1!", false, false)

	updated, err := env.admins.UpdateUser(ctx, admin, pending.ID, UpdateUserRequest{
		IsApproved: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsApproved)
	assert.False(t, updated.IsAdmin)

	// Promote to admin separately; approval stays put.
	updated, err = env.admins.UpdateUser(ctx, admin, pending.ID, UpdateUserRequest{
		IsAdmin: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsApproved)
	assert.True(t, updated.IsAdmin)
}

func TestAdminService_UpdateUser_SelfDemotion(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminPrincipal(t)

	_, err := env.admins.UpdateUser(context.Background(), admin, admin.UserID, UpdateUserRequest{
		IsAdmin: boolPtr(false),
	})
	assert.True(t, errors.Is(err, domainerrors.ErrConflict), "got %v", err)
}

func TestAdminService_UpdateUser_NotAdmin(t *testing.T) {
	env := setupTestEnv(t)
	member := env.memberPrincipal(t)

	_, err := env.admins.UpdateUser(context.Background(), member, member.UserID, UpdateUserRequest{
		IsApproved: boolPtr(true),
	})
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden), "got %v", err)
}

func TestAdminService_DeleteUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.adminPrincipal(t)
	member := env.memberPrincipal(t)

	// Self-deletion is refused.
	err := env.admins.DeleteUser(ctx, admin, admin.UserID)
	assert.True(t, errors.Is(err, domainerrors.ErrConflict), "got %v", err)

	require.NoError(t, env.admins.DeleteUser(ctx, admin, member.UserID))

	err = env.admins.DeleteUser(ctx, admin, member.UserID)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestAdminService_ApproveByToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pending := env.mustCreateUser(t, "pending@example.com", "SecurePassword1!", false, false)

	token, err := env.tokens.IssueApprove(auth.ApproveClaims{
		UserID: pending.ID,
		Email:  pending.Email,
	})
	require.NoError(t, err)

	user, err := env.admins.ApproveByToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsApproved)

	// Second use is a no-op success.
	user, err = env.admins.ApproveByToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsApproved)
}

func TestAdminService_ApproveByToken_Invalid(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.admins.ApproveByToken(ctx, "garbage")
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized), "got %v", err)

	// A session token is not an approval token.
	user := env.mustCreateUser(t, "alice@example.com", "SecurePassword1!", false, false)
	sessionToken, err := env.tokens.IssueSession(auth.SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
	})
	require.NoError(t, err)

	_, err = env.admins.ApproveByToken(ctx, sessionToken)
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized), "got %v", err)
}

func TestAdminService_ApproveByToken_DeletedUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pending := env.mustCreateUser(t, "pending@example.com", "SecurePassword1!", false, false)
	token, err := env.tokens.IssueApprove(auth.ApproveClaims{
		UserID: pending.ID,
		Email:  pending.Email,
	})
	require.NoError(t, err)

	require.NoError(t, env.store.DeleteUser(ctx, pending.ID))

	_, err = env.admins.ApproveByToken(ctx, token)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}
