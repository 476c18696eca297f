package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const maxTokenResponseSize = 1 << 20

// Exchanger trades an authorization code for an access token.
//
// Each call issues exactly one POST to the token endpoint and is never retried.
type Exchanger struct {
	OAuth *oauth2.Config
	// HTTP must carry the exchange timeout.
	HTTP *http.Client
}

// NewExchanger returns an exchanger bounded by cfg.ExchangeTimeout.
func NewExchanger(cfg *Config) *Exchanger {
	timeout := cfg.ExchangeTimeout
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &Exchanger{
		OAuth: cfg.OAuth2(),
		HTTP:  &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange posts the code to the token endpoint.
//
// A response without an access token yields ErrNoAccessToken.
// Everything else that goes wrong yields ErrUpstream.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("client_id", e.OAuth.ClientID)
	form.Set("client_secret", e.OAuth.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", e.OAuth.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.OAuth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build token request: %w", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := e.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token request: %w", ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: token endpoint returned status %d", ErrUpstream, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read token response: %w", ErrUpstream, err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %w", ErrUpstream, err)
	}
	if tr.AccessToken == "" {
		if tr.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrNoAccessToken, tr.Error, tr.ErrorDescription)
		}
		return nil, ErrNoAccessToken
	}
	token := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
	}
	return token.WithExtra(map[string]interface{}{"scope": tr.Scope}), nil
}
