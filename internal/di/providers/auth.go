package providers

import (
	"github.com/samber/do/v2"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/config"
	"github.com/vibelabapp/vibelab-server/internal/logger"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.TokenKey = key

	log.Info("Token key loaded",
		"session_token_duration", cfg.Auth.SessionTokenDuration,
		"link_token_duration", cfg.Auth.LinkTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.SessionTokenDuration, cfg.Auth.LinkTokenDuration)
}
