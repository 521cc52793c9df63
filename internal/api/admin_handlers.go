package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibelabapp/vibelab-server/internal/http/response"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// handleListUsers returns all accounts, credential material stripped.
// GET /api/admin/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.adminService.ListUsers(r.Context(), getPrincipal(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	sanitized := make([]map[string]any, 0, len(users))
	for _, u := range users {
		m := sanitizedUser(u.User)
		m["experiment_ids"] = u.ExperimentIDs
		sanitized = append(sanitized, m)
	}

	response.Success(w, map[string]any{
		"users": sanitized,
		"count": len(sanitized),
	}, s.logger)
}

// handleUpdateUser changes a user's approval or admin flags.
// PATCH /api/admin/users/{id}.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req service.UpdateUserRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.adminService.UpdateUser(r.Context(), getPrincipal(r.Context()), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, sanitizedUser(user), s.logger)
}

// handleDeleteUser removes an account.
// DELETE /api/admin/users/{id}.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := s.adminService.DeleteUser(r.Context(), getPrincipal(r.Context()), userID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleIssueInvitation creates an invitation for an email address.
// POST /api/admin/invitations.
func (s *Server) handleIssueInvitation(w http.ResponseWriter, r *http.Request) {
	var req service.IssueInvitationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	inv, err := s.inviteService.Issue(r.Context(), getPrincipal(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, inv, s.logger)
}

// handleListInvitations returns all invitations, newest first.
// GET /api/admin/invitations.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.inviteService.List(r.Context(), getPrincipal(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"invitations": invitations,
		"count":       len(invitations),
	}, s.logger)
}

// handleRevokeInvitation deletes an invitation so it can no longer be
// redeemed.
// DELETE /api/admin/invitations/{id}.
func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "id")

	if err := s.inviteService.Revoke(r.Context(), getPrincipal(r.Context()), invitationID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
