package auth

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, sessionDuration, linkDuration time.Duration) *TokenService {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := NewTokenService(key, sessionDuration, linkDuration)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return s
}

func TestNewTokenServiceKeySize(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour, time.Hour)
	if err == nil {
		t.Error("expected error for short key")
	}
	_, err = NewTokenService(make([]byte, 32), time.Hour, time.Hour)
	if err != nil {
		t.Errorf("expected 32-byte key to work, got %v", err)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	s := newTestTokenService(t, time.Hour, 7*24*time.Hour)

	token, err := s.IssueSession(SessionClaims{
		UserID:  "user-1",
		Email:   "alice@example.com",
		IsAdmin: true,
	})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if !strings.HasPrefix(token, "v4.local.") {
		t.Errorf("expected v4.local token, got %q", token)
	}

	claims, err := s.ParseSession(token)
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID: got %q, want user-1", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email: got %q, want alice@example.com", claims.Email)
	}
	if !claims.IsAdmin {
		t.Error("IsAdmin: expected true")
	}
}

func TestInviteTokenRoundTrip(t *testing.T) {
	s := newTestTokenService(t, time.Hour, 7*24*time.Hour)

	token, err := s.IssueInvite(InviteClaims{
		InvitationID: "invite-1",
		Email:        "alice@example.com",
	})
	if err != nil {
		t.Fatalf("IssueInvite: %v", err)
	}

	claims, err := s.ParseInvite(token)
	if err != nil {
		t.Fatalf("ParseInvite: %v", err)
	}
	if claims.InvitationID != "invite-1" {
		t.Errorf("InvitationID: got %q, want invite-1", claims.InvitationID)
	}
}

func TestApproveTokenRoundTrip(t *testing.T) {
	s := newTestTokenService(t, time.Hour, 7*24*time.Hour)

	token, err := s.IssueApprove(ApproveClaims{
		UserID: "user-1",
		Email:  "alice@example.com",
	})
	if err != nil {
		t.Fatalf("IssueApprove: %v", err)
	}

	claims, err := s.ParseApprove(token)
	if err != nil {
		t.Fatalf("ParseApprove: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID: got %q, want user-1", claims.UserID)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	s := newTestTokenService(t, time.Hour, 7*24*time.Hour)

	session, err := s.IssueSession(SessionClaims{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	invite, err := s.IssueInvite(InviteClaims{InvitationID: "invite-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueInvite: %v", err)
	}
	approve, err := s.IssueApprove(ApproveClaims{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueApprove: %v", err)
	}

	if _, err := s.ParseSession(invite); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("session parser accepted invite token: %v", err)
	}
	if _, err := s.ParseSession(approve); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("session parser accepted approve token: %v", err)
	}
	if _, err := s.ParseInvite(session); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("invite parser accepted session token: %v", err)
	}
	if _, err := s.ParseApprove(session); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("approve parser accepted session token: %v", err)
	}
}

func TestTokenRejectedAcrossKeys(t *testing.T) {
	s1 := newTestTokenService(t, time.Hour, time.Hour)
	s2 := newTestTokenService(t, time.Hour, time.Hour)

	token, err := s1.IssueSession(SessionClaims{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if _, err := s2.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken under a different key, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	s := newTestTokenService(t, time.Hour, time.Hour)

	token, err := s.IssueSession(SessionClaims{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	// Flip one character of the payload.
	b := []byte(token)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	if _, err := s.ParseSession(string(b)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestTokenService(t, 10*time.Millisecond, 10*time.Millisecond)

	token, err := s.IssueSession(SessionClaims{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := s.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGarbageTokensRejected(t *testing.T) {
	s := newTestTokenService(t, time.Hour, time.Hour)

	for _, token := range []string{"", "garbage", "v4.local.", "v4.public.abc"} {
		if _, err := s.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
