package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/vibelabapp/vibelab-server/internal/api"
	"github.com/vibelabapp/vibelab-server/internal/config"
	"github.com/vibelabapp/vibelab-server/internal/logger"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening in the
// background. Bootstrap runs first so the admin account exists before the
// first request lands.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	_ = do.MustInvoke[*Bootstrap](i)

	authService := do.MustInvoke[*service.AuthService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	inviteService := do.MustInvoke[*service.InviteService](i)
	experimentService := do.MustInvoke[*service.ExperimentService](i)
	adminService := do.MustInvoke[*service.AdminService](i)
	apiLimiter := do.MustInvoke[*APILimiterHandle](i)

	handler := api.NewServer(
		authService,
		sessionService,
		inviteService,
		experimentService,
		adminService,
		apiLimiter.KeyedRateLimiter,
		cfg.Auth.SessionTokenDuration,
		cfg.App.Environment != "development",
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr, "base_url", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
