package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/store"
)

const invitationColumns = `id, email, token, expires_at, max_uses, used_count, auto_approve, created_by, created_at`

func scanInvitation(scanner interface{ Scan(dest ...any) error }) (*domain.Invitation, error) {
	var inv domain.Invitation

	var (
		autoApprove int
		expiresAt   string
		createdAt   string
	)

	err := scanner.Scan(
		&inv.ID,
		&inv.Email,
		&inv.Token,
		&expiresAt,
		&inv.MaxUses,
		&inv.UsedCount,
		&autoApprove,
		&inv.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	inv.AutoApprove = autoApprove != 0

	inv.ExpiresAt, err = parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	inv.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

// CreateInvitation inserts a new invitation.
// Returns store.ErrAlreadyExists on a token collision.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, email, token, expires_at, max_uses, used_count, auto_approve, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.Email,
		inv.Token,
		formatTime(inv.ExpiresAt),
		inv.MaxUses,
		inv.UsedCount,
		boolToInt(inv.AutoApprove),
		inv.CreatedBy,
		formatTime(inv.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetInvitation retrieves an invitation by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvitationByToken retrieves an invitation by its opaque token.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = ?`, token)

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvitations returns all invitations, newest first.
func (s *Store) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invs, nil
}

// DeleteInvitation removes an invitation, revoking any unredeemed uses.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
