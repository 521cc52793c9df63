package providers

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/config"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/id"
	"github.com/vibelabapp/vibelab-server/internal/logger"
	"github.com/vibelabapp/vibelab-server/internal/store"
	"github.com/vibelabapp/vibelab-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "vibelab.db")
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// Bootstrap contains the startup provisioning result.
type Bootstrap struct {
	Admin      *domain.User
	IsNewAdmin bool
}

// ProvideBootstrap ensures an admin account exists when one is configured.
// Without a configured admin and with no admin row, the server still starts;
// the first account has to be approved out of band.
func ProvideBootstrap(i do.Injector) (*Bootstrap, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	ctx := context.Background()

	admin, err := storeHandle.FirstAdmin(ctx)
	if err == nil {
		log.Info("Using existing admin account",
			"admin_id", admin.ID,
			"admin_email", admin.Email,
		)
		return &Bootstrap{Admin: admin, IsNewAdmin: false}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Warn("No admin account exists and none is configured")
		return &Bootstrap{}, nil
	}

	hash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		return nil, err
	}

	admin = &domain.User{
		ID:           id.MustGenerate("user"),
		Email:        cfg.Admin.Email,
		PasswordHash: hash,
		IsApproved:   true,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := storeHandle.CreateUser(ctx, admin); err != nil {
		// Lost a race with a concurrent bootstrap, or the email is taken
		// by a non-admin account. Either way the operator has to resolve it.
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("Configured admin email already registered", "admin_email", cfg.Admin.Email)
			return &Bootstrap{}, nil
		}
		return nil, err
	}

	log.Info("Bootstrap admin created",
		"admin_id", admin.ID,
		"admin_email", admin.Email,
	)

	return &Bootstrap{Admin: admin, IsNewAdmin: true}, nil
}
