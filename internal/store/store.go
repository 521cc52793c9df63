// Package store defines the persistence interfaces consumed by the services.
// The store is the sole arbiter of uniqueness (email, invitation token, slug,
// grant pairs): every uniqueness rule is enforced by the engine's constraints,
// not by application-level check-then-insert.
package store

import (
	"context"
	"errors"

	"github.com/vibelabapp/vibelab-server/internal/domain"
)

// Sentinel errors returned by store implementations. Services translate
// these into domain errors; ErrAlreadyExists in particular marks a
// uniqueness-constraint violation, distinct from transient store failures,
// so callers can choose a user-facing conflict message over a retry.
var (
	ErrNotFound            = errors.New("store: not found")
	ErrAlreadyExists       = errors.New("store: already exists")
	ErrInvitationExhausted = errors.New("store: invitation exhausted")
)

// UserStore persists user accounts. Email uniqueness is case-insensitive.
type UserStore interface {
	// CreateUser inserts a new user.
	// Returns ErrAlreadyExists if the email is already taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// CreateUserWithInvitation inserts a new user and consumes one use of the
	// referenced invitation in a single transaction: both succeed or neither
	// does. Returns ErrInvitationExhausted if the invitation's use budget was
	// spent by a concurrent redemption.
	CreateUserWithInvitation(ctx context.Context, user *domain.User, invitationID string) error

	// GetUser returns a user by ID. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail returns a user by email, matched case-insensitively.
	// Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListUsers returns all users ordered by creation time descending.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// FirstAdmin returns the oldest admin account, or ErrNotFound if none.
	FirstAdmin(ctx context.Context) (*domain.User, error)

	// CountUsers returns the number of user accounts.
	CountUsers(ctx context.Context) (int, error)

	// UpdateUser performs a full row update. Returns ErrNotFound if absent.
	UpdateUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes a user; grants cascade. Returns ErrNotFound if absent.
	DeleteUser(ctx context.Context, id string) error
}

// InvitationStore persists invitations. Rows are never deleted automatically;
// deleting a row is how an admin revokes an outstanding token.
type InvitationStore interface {
	// CreateInvitation inserts a new invitation.
	// Returns ErrAlreadyExists on a token collision.
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error

	// GetInvitation returns an invitation by ID. Returns ErrNotFound if absent.
	GetInvitation(ctx context.Context, id string) (*domain.Invitation, error)

	// GetInvitationByToken returns an invitation by its opaque token.
	// Returns ErrNotFound if absent.
	GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error)

	// ListInvitations returns all invitations, newest first.
	ListInvitations(ctx context.Context) ([]*domain.Invitation, error)

	// DeleteInvitation removes an invitation, invalidating its token.
	// Returns ErrNotFound if absent.
	DeleteInvitation(ctx context.Context, id string) error
}

// ExperimentStore persists the served-artifact catalog.
type ExperimentStore interface {
	// CreateExperiment inserts a new experiment.
	// Returns ErrAlreadyExists if the slug is taken.
	CreateExperiment(ctx context.Context, exp *domain.Experiment) error

	// GetExperiment returns an experiment by ID. Returns ErrNotFound if absent.
	GetExperiment(ctx context.Context, id string) (*domain.Experiment, error)

	// GetExperimentBySlug returns an experiment by slug.
	// Returns ErrNotFound if absent.
	GetExperimentBySlug(ctx context.Context, slug string) (*domain.Experiment, error)

	// ListExperiments returns the whole catalog, newest first.
	ListExperiments(ctx context.Context) ([]*domain.Experiment, error)

	// ListExperimentsForUser returns the experiments visible to a user:
	// public ones plus those the user holds a grant for, newest first.
	ListExperimentsForUser(ctx context.Context, userID string) ([]*domain.Experiment, error)

	// UpdateExperiment performs a full row update. Returns ErrNotFound if absent.
	UpdateExperiment(ctx context.Context, exp *domain.Experiment) error

	// DeleteExperiment removes an experiment; grants cascade.
	// Returns ErrNotFound if absent.
	DeleteExperiment(ctx context.Context, id string) error
}

// GrantStore persists user-experiment access grants.
type GrantStore interface {
	// CreateGrant records explicit access for a (user, experiment) pair.
	// Returns ErrAlreadyExists if the grant already exists: a duplicate is an
	// error, never a second row.
	CreateGrant(ctx context.Context, grant *domain.Grant) error

	// DeleteGrant revokes explicit access. Returns ErrNotFound if absent.
	DeleteGrant(ctx context.Context, userID, experimentID string) error

	// GrantExists reports whether a grant row exists for the pair.
	GrantExists(ctx context.Context, userID, experimentID string) (bool, error)

	// ListGrantsForUser returns all grants held by a user.
	ListGrantsForUser(ctx context.Context, userID string) ([]*domain.Grant, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	InvitationStore
	ExperimentStore
	GrantStore

	Close() error
}
