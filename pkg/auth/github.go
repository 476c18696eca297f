package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Flow serves the login redirect and the OAuth callback.
type Flow struct {
	OAuth     *oauth2.Config
	Exchanger *Exchanger
	// APIURL is the REST API base URL with a trailing slash.
	APIURL *url.URL
	// APIHTTP is the base client for API calls. Nil means http.DefaultClient.
	APIHTTP *http.Client
	Log     *zap.Logger

	logins    metric.Int64Counter
	callbacks metric.Int64Counter
}

// NewFlow validates cfg and assembles a Flow.
func NewFlow(cfg Config, log *zap.Logger, meter metric.Meter) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	logins, err := meter.Int64Counter("octolog.oauth.logins",
		metric.WithDescription("Redirects issued to the GitHub authorize endpoint"))
	if err != nil {
		return nil, err
	}
	callbacks, err := meter.Int64Counter("octolog.oauth.callbacks",
		metric.WithDescription("OAuth callbacks handled, by outcome"))
	if err != nil {
		return nil, err
	}
	return &Flow{
		OAuth:     cfg.OAuth2(),
		Exchanger: NewExchanger(&cfg),
		APIURL:    base,
		Log:       log,
		logins:    logins,
		callbacks: callbacks,
	}, nil
}

// ServeLogin redirects the user to GitHub's authorize endpoint.
func (f *Flow) ServeLogin(wr http.ResponseWriter, req *http.Request) {
	authURL := f.OAuth.AuthCodeURL("")
	f.Log.Info("Redirecting to GitHub for authorization",
		zap.String("redirect_uri", f.OAuth.RedirectURL),
		zap.Strings("scopes", f.OAuth.Scopes))
	f.logins.Add(req.Context(), 1)
	http.Redirect(wr, req, authURL, http.StatusFound)
}

// ServeCallback exchanges the code and logs the user's account.
func (f *Flow) ServeCallback(wr http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	err := f.callback(ctx, req.URL.Query().Get("code"))
	switch {
	case err == nil:
		f.record(ctx, "ok")
		wr.Header().Set("Content-Type", "text/plain; charset=utf-8")
		wr.WriteHeader(http.StatusOK)
		_, _ = wr.Write([]byte("Authentication successful. Check the server logs for details.\n"))
	case errors.Is(err, ErrMissingCode):
		f.record(ctx, "missing_code")
		f.Log.Warn("Callback without authorization code")
		http.Error(wr, "Missing code parameter", http.StatusBadRequest)
	case errors.Is(err, ErrNoAccessToken):
		f.record(ctx, "no_access_token")
		f.Log.Warn("Token exchange returned no access token", zap.Error(err))
		http.Error(wr, "No access token received", http.StatusBadRequest)
	default:
		f.record(ctx, "upstream_failure")
		f.Log.Error("OAuth callback failed", zap.Error(err))
		http.Error(wr, "Authentication failed", http.StatusInternalServerError)
	}
}

func (f *Flow) record(ctx context.Context, outcome string) {
	f.callbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (f *Flow) callback(ctx context.Context, code string) error {
	if code == "" {
		return ErrMissingCode
	}
	token, err := f.Exchanger.Exchange(ctx, code)
	if err != nil {
		return err
	}
	account, err := FetchAccount(ctx, f.client(ctx, token))
	if err != nil {
		return err
	}
	f.Log.Info("Authenticated GitHub user", zap.String("login", account.User.GetLogin()))
	f.Log.Info("Fetched repositories", zap.Int("count", len(account.Repos)))
	for _, repo := range account.Repos {
		f.Log.Info("Repository",
			zap.String("full_name", repo.GetFullName()),
			zap.String("description", repo.GetDescription()))
	}
	return nil
}

// client returns a REST client authenticated as the token's owner.
func (f *Flow) client(ctx context.Context, token *oauth2.Token) *github.Client {
	if f.APIHTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.APIHTTP)
	}
	client := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)))
	client.BaseURL = f.APIURL
	return client
}

// Account is the authenticated user and the first page of their repositories.
type Account struct {
	User  *github.User
	Repos []*github.Repository
}

// FetchAccount issues the two read-only API calls of a callback.
func FetchAccount(ctx context.Context, client *github.Client) (*Account, error) {
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: get authenticated user: %w", ErrUpstream, err)
	}
	repos, _, err := client.Repositories.ListByAuthenticatedUser(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list repositories: %w", ErrUpstream, err)
	}
	return &Account{User: user, Repos: repos}, nil
}
