package auth

// Kind discriminates the three token shapes sharing one signing mechanism.
// Parse rejects a token presented as the wrong kind, so a session token can
// never be redeemed as an invitation and vice versa.
type Kind string

const (
	// KindSession authenticates a logged-in user for the session lifetime.
	KindSession Kind = "session"
	// KindInvite carries an invitation reference in registration links.
	KindInvite Kind = "invite"
	// KindApprove carries a user reference in admin approval links.
	KindApprove Kind = "approve"
)

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// InviteClaims are the claims of an invitation link token.
type InviteClaims struct {
	InvitationID string `json:"invitation_id"`
	Email        string `json:"email"`
}

// ApproveClaims are the claims of an approval link token.
type ApproveClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
