package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyPrincipal contextKey = "principal"

// sessionCookieName is the cookie that carries the session token for
// browser clients. API clients use the Authorization header instead.
const sessionCookieName = "session"

// extractSessionToken pulls the session token from the request: the
// session cookie first, then a Bearer Authorization header.
func extractSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// requireAuth is middleware that resolves the session token against the
// user store and attaches the resulting principal to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractSessionToken(r)
		if token == "" {
			response.Unauthorized(w, "authentication required", s.logger)
			return
		}

		principal, err := s.sessionService.Resolve(r.Context(), token)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin ensures the resolved principal is an admin.
// Must be used after requireAuth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := getPrincipal(r.Context())
		if principal == nil || !principal.IsAdmin {
			response.Forbidden(w, "admin access required", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getPrincipal extracts the authenticated principal from request context.
// Returns nil if not authenticated.
func getPrincipal(ctx context.Context) *domain.Principal {
	if principal, ok := ctx.Value(contextKeyPrincipal).(*domain.Principal); ok {
		return principal
	}
	return nil
}

// setSessionCookie attaches the session token to the response.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
