package bootstrap

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/coaching-booking-platform/internal/authprobe"
	appconfig "github.com/wolfman30/coaching-booking-platform/internal/config"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// Auth modes reported by diagnostics.
const (
	AuthModeHosted = "gotrue"
	AuthModeLocal  = "local"
)

// BuildAuthenticator picks the hosted auth API when AUTH_URL is set and the
// local users table otherwise.
func BuildAuthenticator(cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (authprobe.Authenticator, string, error) {
	if cfg.AuthURL != "" {
		auth, err := authprobe.NewGoTrueAuthenticator(authprobe.GoTrueConfig{
			BaseURL: cfg.AuthURL,
			APIKey:  cfg.AuthAPIKey,
			Timeout: cfg.AuthTimeout,
		}, &http.Client{Timeout: cfg.AuthTimeout}, logger)
		if err != nil {
			return nil, "", err
		}
		return auth, AuthModeHosted, nil
	}
	if pool == nil {
		return nil, "", errors.New("bootstrap: AUTH_URL or DATABASE_URL is required for sign-in")
	}
	return authprobe.NewLocalAuthenticator(pool), AuthModeLocal, nil
}
