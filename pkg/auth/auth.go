// Package auth implements the GitHub OAuth 2.0 web application flow.
//
// A user is redirected to GitHub's authorize endpoint by ServeLogin.
// GitHub sends them back to ServeCallback with a one-time code, which is
// exchanged for an access token. The token is used for two read-only API
// calls and then dropped; nothing is cached between requests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

// Defaults for public GitHub.
const (
	DefaultWebURL          = "https://github.com"
	DefaultAPIURL          = "https://api.github.com/"
	DefaultExchangeTimeout = 5 * time.Second
)

// Scopes requested on every authorization.
var Scopes = []string{"repo", "admin:org"}

var (
	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
	// ErrNoAccessToken is returned when the token exchange response has no access token.
	ErrNoAccessToken = errors.New("no access token in exchange response")
	// ErrUpstream wraps network failures, non-2xx responses and malformed bodies from GitHub.
	ErrUpstream = errors.New("github upstream failure")
)

// Config holds the OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURL must match the callback URL registered with the OAuth app.
	RedirectURL string
	// WebURL hosts /login/oauth/authorize and /login/oauth/access_token.
	WebURL string
	// APIURL is the REST API base URL.
	APIURL          string
	ExchangeTimeout time.Duration
}

// Validate checks that the client credentials are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("missing OAuth client ID")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("missing OAuth client secret")
	}
	return nil
}

// OAuth2 returns the x/oauth2 view of the config.
func (c *Config) OAuth2() *oauth2.Config {
	endpoint := oauth2github.Endpoint
	if web := strings.TrimSuffix(c.WebURL, "/"); web != "" && web != DefaultWebURL {
		endpoint = oauth2.Endpoint{
			AuthURL:   web + "/login/oauth/authorize",
			TokenURL:  web + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       Scopes,
	}
}
