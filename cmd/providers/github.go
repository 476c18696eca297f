package providers

import (
	"fmt"

	"github.com/spf13/viper"
	"go.od2.network/octolog/pkg/auth"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// GitHub OAuth app config keys.
const (
	ConfGitHubClientID        = "github.client_id"
	ConfGitHubClientSecret    = "github.client_secret"
	ConfGitHubWebURL          = "github.web_url"
	ConfGitHubAPIURL          = "github.api_url"
	ConfGitHubExchangeTimeout = "github.exchange_timeout"
)

func init() {
	viper.SetDefault(ConfGitHubClientID, "")
	viper.SetDefault(ConfGitHubClientSecret, "")
	viper.SetDefault(ConfGitHubWebURL, auth.DefaultWebURL)
	viper.SetDefault(ConfGitHubAPIURL, auth.DefaultAPIURL)
	viper.SetDefault(ConfGitHubExchangeTimeout, auth.DefaultExchangeTimeout)
}

// NewAuthConfig reads the OAuth app from config.
// The redirect URL is derived from the server's base URL.
func NewAuthConfig(log *zap.Logger) (*auth.Config, error) {
	cfg := &auth.Config{
		ClientID:        viper.GetString(ConfGitHubClientID),
		ClientSecret:    viper.GetString(ConfGitHubClientSecret),
		RedirectURL:     BaseURL() + "/callback",
		WebURL:          viper.GetString(ConfGitHubWebURL),
		APIURL:          viper.GetString(ConfGitHubAPIURL),
		ExchangeTimeout: viper.GetDuration(ConfGitHubExchangeTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET)", err)
	}
	log.Info("Loaded GitHub OAuth app",
		zap.String(ConfGitHubClientID, cfg.ClientID),
		zap.String("redirect_uri", cfg.RedirectURL),
		zap.String(ConfGitHubWebURL, cfg.WebURL),
		zap.String(ConfGitHubAPIURL, cfg.APIURL),
		zap.Duration(ConfGitHubExchangeTimeout, cfg.ExchangeTimeout))
	return cfg, nil
}

func NewFlow(cfg *auth.Config, log *zap.Logger, meter metric.Meter) (*auth.Flow, error) {
	return auth.NewFlow(*cfg, log.Named("auth"), meter)
}
