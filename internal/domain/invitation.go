package domain

import "time"

// Invitation is a consumable, expiring credential that pre-authorizes
// registration for a specific email address.
// The token is a bare random lookup key, not a signed claim, so an admin can
// revoke an invitation by deleting the row. Consumed invitations are retained
// as an audit trail.
type Invitation struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"` // Only this address may redeem
	Token       string    `json:"token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	MaxUses     int       `json:"max_uses"`
	UsedCount   int       `json:"used_count"`
	AutoApprove bool      `json:"auto_approve"`
	CreatedBy   string    `json:"created_by"` // Admin user ID
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the invitation has passed its expiration time.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsExhausted returns true if the invitation's use budget is spent.
func (i *Invitation) IsExhausted() bool {
	return i.UsedCount >= i.MaxUses
}

// IsRedeemable returns true if the invitation can still be redeemed.
func (i *Invitation) IsRedeemable() bool {
	return !i.IsExpired() && !i.IsExhausted()
}

// Status returns a human-readable status string for the invitation.
func (i *Invitation) Status() string {
	if i.IsExhausted() {
		return "used"
	}
	if i.IsExpired() {
		return "expired"
	}
	return "pending"
}
