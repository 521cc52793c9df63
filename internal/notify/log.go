package notify

import (
	"context"
	"log/slog"

	"github.com/vibelabapp/vibelab-server/internal/domain"
)

// LogNotifier writes notifications to the structured log. It is the
// default sink for self-hosted deployments without outbound email.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) InvitationCreated(ctx context.Context, inv *domain.Invitation, link string) error {
	n.logger.InfoContext(ctx, "invitation created",
		"invitation_id", inv.ID,
		"email", inv.Email,
		"max_uses", inv.MaxUses,
		"expires_at", inv.ExpiresAt,
		"link", link)
	return nil
}

func (n *LogNotifier) UserPendingApproval(ctx context.Context, recipient string, user *domain.User, approveLink string) error {
	n.logger.InfoContext(ctx, "user pending approval",
		"recipient", recipient,
		"user_id", user.ID,
		"email", user.Email,
		"approve_link", approveLink)
	return nil
}

func (n *LogNotifier) UserApproved(ctx context.Context, user *domain.User) error {
	n.logger.InfoContext(ctx, "user approved",
		"user_id", user.ID,
		"email", user.Email)
	return nil
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) InvitationCreated(context.Context, *domain.Invitation, string) error     { return nil }
func (Noop) UserPendingApproval(context.Context, string, *domain.User, string) error { return nil }
func (Noop) UserApproved(context.Context, *domain.User) error                        { return nil }
