package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/http/response"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// handleRegister creates a new account, optionally against an invitation.
// POST /api/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.IPAddress = getClientIP(r)

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin authenticates credentials and issues a session token.
// The token goes out both in the body, for API clients, and as an
// HttpOnly cookie, for browsers.
// POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.IPAddress = getClientIP(r)

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setSessionCookie(w, resp.Token)
	response.Success(w, map[string]any{
		"user":       sanitizedUser(resp.User),
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	}, s.logger)
}

// handleLogout clears the session cookie. Tokens are stateless, so the
// bearer copy simply expires on its own.
// POST /api/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	response.Success(w, map[string]any{"message": "logged out"}, s.logger)
}

// handleGetCurrentUser returns the authenticated principal.
// GET /api/auth/me.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal := getPrincipal(r.Context())
	if principal == nil {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	response.Success(w, principal, s.logger)
}

// handleApproveByToken approves a pending account via the signed link
// sent to admins. Possession of a valid token is the authorization.
// GET /api/approve?token=...
func (s *Server) handleApproveByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Approval token is required", s.logger)
		return
	}

	user, err := s.adminService.ApproveByToken(r.Context(), token)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"user":    sanitizedUser(user),
		"message": "account approved",
	}, s.logger)
}

// sanitizedUser strips credential material from a user for API responses.
func sanitizedUser(u *domain.User) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"email":       u.Email,
		"is_approved": u.IsApproved,
		"is_admin":    u.IsAdmin,
		"created_at":  u.CreatedAt,
	}
}
