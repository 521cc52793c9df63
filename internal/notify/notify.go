// Package notify delivers operator-facing notifications about account
// lifecycle events. Delivery is best effort: callers treat failures as
// non-fatal and the orchestration layer only logs them.
package notify

import (
	"context"

	"github.com/vibelabapp/vibelab-server/internal/domain"
)

// Notifier receives account lifecycle events.
type Notifier interface {
	// InvitationCreated fires after an admin issues an invitation.
	InvitationCreated(ctx context.Context, inv *domain.Invitation, link string) error

	// UserPendingApproval fires after a registration that needs an
	// admin decision. recipient is the admin address the notification
	// goes to and approveLink carries a single-use approval URL.
	UserPendingApproval(ctx context.Context, recipient string, user *domain.User, approveLink string) error

	// UserApproved fires after an account is approved.
	UserApproved(ctx context.Context, user *domain.User) error
}
