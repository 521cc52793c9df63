// Package api provides the HTTP API server and handlers for the Vibe Lab application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vibelabapp/vibelab-server/internal/ratelimit"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService       *service.AuthService
	sessionService    *service.SessionService
	inviteService     *service.InviteService
	experimentService *service.ExperimentService
	adminService      *service.AdminService
	apiLimiter        *ratelimit.KeyedRateLimiter
	sessionDuration   time.Duration
	secureCookies     bool
	router            *chi.Mux
	logger            *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// apiLimiter may be nil to disable the coarse per-IP limit (tests do this).
// secureCookies marks the session cookie Secure; set it everywhere TLS
// terminates in front of the server, i.e. outside local development.
func NewServer(
	authService *service.AuthService,
	sessionService *service.SessionService,
	inviteService *service.InviteService,
	experimentService *service.ExperimentService,
	adminService *service.AdminService,
	apiLimiter *ratelimit.KeyedRateLimiter,
	sessionDuration time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:       authService,
		sessionService:    sessionService,
		inviteService:     inviteService,
		experimentService: experimentService,
		adminService:      adminService,
		apiLimiter:        apiLimiter,
		sessionDuration:   sessionDuration,
		secureCookies:     secureCookies,
		router:            chi.NewRouter(),
		logger:            logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.apiLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.apiLimiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		// Auth endpoints (public, protected by the fixed-window limiter
		// inside the service).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/me", s.handleGetCurrentUser)
			})
		})

		// Approval link (authorized by the signed token it carries).
		r.Get("/approve", s.handleApproveByToken)

		// Hub listing.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/experiments", s.handleListExperiments)
		})

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", s.handleIssueInvitation)
				r.Get("/", s.handleListInvitations)
				r.Delete("/{id}", s.handleRevokeInvitation)
			})

			r.Route("/experiments", func(r chi.Router) {
				r.Post("/", s.handleCreateExperiment)
				r.Patch("/{id}", s.handleUpdateExperiment)
				r.Delete("/{id}", s.handleDeleteExperiment)
				r.Put("/{id}/grants/{userID}", s.handleGrantAccess)
				r.Delete("/{id}/grants/{userID}", s.handleRevokeAccess)
			})
		})
	})

	// Experiment artifacts, served by slug.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/experiments/{slug}", s.handleOpenExperiment)
	})
}
