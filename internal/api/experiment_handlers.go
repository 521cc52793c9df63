package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibelabapp/vibelab-server/internal/http/response"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// handleListExperiments returns the experiments visible to the caller.
// GET /api/experiments.
func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	principal := getPrincipal(r.Context())
	if principal == nil {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	experiments, err := s.experimentService.ListForPrincipal(r.Context(), principal)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"experiments": experiments,
		"count":       len(experiments),
	}, s.logger)
}

// handleOpenExperiment serves an experiment artifact by slug, access
// checked against the caller.
// GET /experiments/{slug}.
func (s *Server) handleOpenExperiment(w http.ResponseWriter, r *http.Request) {
	principal := getPrincipal(r.Context())
	if principal == nil {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	slug := chi.URLParam(r, "slug")
	if slug == "" {
		response.BadRequest(w, "Experiment slug is required", s.logger)
		return
	}

	_, content, err := s.experimentService.Open(r.Context(), principal, slug)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Error("Failed to write experiment artifact", "slug", slug, "error", err)
	}
}

// Admin experiment handlers

// handleCreateExperiment registers a new experiment.
// POST /api/admin/experiments.
func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req service.CreateExperimentRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	exp, err := s.experimentService.Create(r.Context(), getPrincipal(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, exp, s.logger)
}

// handleUpdateExperiment replaces an experiment's mutable fields.
// PATCH /api/admin/experiments/{id}.
func (s *Server) handleUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "id")

	var req service.UpdateExperimentRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	exp, err := s.experimentService.Update(r.Context(), getPrincipal(r.Context()), experimentID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, exp, s.logger)
}

// handleDeleteExperiment removes an experiment and its grants.
// DELETE /api/admin/experiments/{id}.
func (s *Server) handleDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "id")

	if err := s.experimentService.Delete(r.Context(), getPrincipal(r.Context()), experimentID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGrantAccess gives a user explicit access to an experiment.
// PUT /api/admin/experiments/{id}/grants/{userID}.
func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")

	if err := s.experimentService.Grant(r.Context(), getPrincipal(r.Context()), userID, experimentID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{"message": "access granted"}, s.logger)
}

// handleRevokeAccess removes a user's explicit access to an experiment.
// DELETE /api/admin/experiments/{id}/grants/{userID}.
func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")

	if err := s.experimentService.RevokeGrant(r.Context(), getPrincipal(r.Context()), userID, experimentID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
