package auth

import (
	"encoding/json/v2"
	"errors"
	"time"

	"aidanwoods.dev/go-paseto"
)

const (
	tokenIssuer   = "vibelab-server"
	tokenAudience = "vibelab-client"

	// PASETO v4 symmetric key requirement.
	keyBytesSize = 32 // 256 bits
)

// ErrInvalidToken is returned for every parse failure: bad signature, wrong
// kind, wrong claim shape, or expiry. Collapsing them prevents a caller (or
// an attacker watching responses) from telling a tampered token apart from
// an expired one.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies PASETO v4.local tokens in three kinds:
// session, invite, and approve. All three share the server key; a kind claim
// keeps them from being interchangeable.
type TokenService struct {
	symmetricKey    paseto.V4SymmetricKey
	sessionDuration time.Duration
	linkDuration    time.Duration
}

// NewTokenService creates a token service from a 32-byte symmetric key.
// sessionDuration bounds session tokens; linkDuration bounds invite and
// approve link tokens.
func NewTokenService(key []byte, sessionDuration, linkDuration time.Duration) (*TokenService, error) {
	if len(key) != keyBytesSize {
		return nil, errors.New("token key must be exactly 32 bytes")
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		symmetricKey:    symmetricKey,
		sessionDuration: sessionDuration,
		linkDuration:    linkDuration,
	}, nil
}

// IssueSession creates a session token for the given claims.
func (s *TokenService) IssueSession(claims SessionClaims) (string, error) {
	return s.issue(KindSession, claims, s.sessionDuration)
}

// ParseSession verifies a session token and returns its claims.
func (s *TokenService) ParseSession(token string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := s.parse(KindSession, token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// IssueInvite creates an invitation link token.
func (s *TokenService) IssueInvite(claims InviteClaims) (string, error) {
	return s.issue(KindInvite, claims, s.linkDuration)
}

// ParseInvite verifies an invitation link token and returns its claims.
func (s *TokenService) ParseInvite(token string) (*InviteClaims, error) {
	var claims InviteClaims
	if err := s.parse(KindInvite, token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// IssueApprove creates an approval link token.
func (s *TokenService) IssueApprove(claims ApproveClaims) (string, error) {
	return s.issue(KindApprove, claims, s.linkDuration)
}

// ParseApprove verifies an approval link token and returns its claims.
func (s *TokenService) ParseApprove(token string) (*ApproveClaims, error) {
	var claims ApproveClaims
	if err := s.parse(KindApprove, token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// SessionDuration returns the configured session token lifetime.
func (s *TokenService) SessionDuration() time.Duration {
	return s.sessionDuration
}

// issue encrypts claims into a v4.local token tagged with kind.
func (s *TokenService) issue(kind Kind, claims any, lifetime time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(lifetime))

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("kind", string(kind))

	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	for k, v := range fields {
		//nolint:errcheck // Token.Set only errors on invalid types, which we control
		_ = token.Set(k, v)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// parse decrypts and validates a token, requiring the expected kind.
// Every failure maps to ErrInvalidToken.
func (s *TokenService) parse(kind Kind, tokenString string, dest any) error {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return ErrInvalidToken
	}

	gotKind, err := token.GetString("kind")
	if err != nil || gotKind != string(kind) {
		return ErrInvalidToken
	}

	if err := json.Unmarshal(token.ClaimsJSON(), dest); err != nil {
		return ErrInvalidToken
	}
	return nil
}
