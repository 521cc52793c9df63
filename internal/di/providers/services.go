package providers

import (
	"github.com/samber/do/v2"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/config"
	"github.com/vibelabapp/vibelab-server/internal/logger"
	"github.com/vibelabapp/vibelab-server/internal/notify"
	"github.com/vibelabapp/vibelab-server/internal/ratelimit"
	"github.com/vibelabapp/vibelab-server/internal/service"
)

// AttemptWindowHandle wraps the fixed-window attempt counter with its sweeper.
type AttemptWindowHandle struct {
	*ratelimit.Window
}

// Shutdown implements do.Shutdownable.
func (h *AttemptWindowHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAttemptWindow provides the fixed-window counter behind the auth
// endpoints.
func ProvideAttemptWindow(i do.Injector) (*AttemptWindowHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &AttemptWindowHandle{Window: ratelimit.NewWindow(cfg.RateLimit.SweepInterval)}, nil
}

// APILimiterHandle wraps the coarse per-IP limiter with its cleaner.
type APILimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *APILimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideAPILimiter provides the whole-API token bucket limiter.
func ProvideAPILimiter(i do.Injector) (*APILimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &APILimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.RateLimit.APIRequestsPerSecond, cfg.RateLimit.APIBurst),
	}, nil
}

// ProvideNotifier provides the notification sink. Deliveries go to the log;
// a mail transport can replace this provider without touching the services.
func ProvideNotifier(i do.Injector) (notify.Notifier, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return notify.NewLogNotifier(log.Logger), nil
}

// ProvideAuthService provides the login and registration service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	attempts := do.MustInvoke[*AttemptWindowHandle](i)
	notifier := do.MustInvoke[notify.Notifier](i)

	limits := service.AuthLimits{
		LoginLimit:    cfg.RateLimit.LoginLimit,
		RegisterLimit: cfg.RateLimit.RegisterLimit,
		Window:        cfg.RateLimit.AttemptWindow,
	}

	return service.NewAuthService(storeHandle.Store, tokens, attempts.Window, notifier, log.Logger, limits, cfg.Server.BaseURL, cfg.Notify.AdminEmail), nil
}

// ProvideSessionService provides the session resolution service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	return service.NewSessionService(storeHandle.Store, tokens, log.Logger), nil
}

// ProvideInviteService provides the invitation service.
func ProvideInviteService(i do.Injector) (*service.InviteService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[notify.Notifier](i)

	return service.NewInviteService(storeHandle.Store, notifier, log.Logger, cfg.Server.BaseURL), nil
}

// ProvideExperimentService provides the experiment catalog and access service.
func ProvideExperimentService(i do.Injector) (*service.ExperimentService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewExperimentService(storeHandle.Store, log.Logger, cfg.Experiments.ArtifactRoot), nil
}

// ProvideAdminService provides the user administration service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	notifier := do.MustInvoke[notify.Notifier](i)

	return service.NewAdminService(storeHandle.Store, tokens, notifier, log.Logger), nil
}
