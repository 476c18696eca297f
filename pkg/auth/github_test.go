package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeGitHub serves the token endpoint and the two REST endpoints.
type fakeGitHub struct {
	*httptest.Server
	tokenCalls atomic.Int32
	apiCalls   atomic.Int32

	tokenHandler http.HandlerFunc
	userStatus   int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{userStatus: http.StatusOK}
	f.tokenHandler = func(wr http.ResponseWriter, req *http.Request) {
		wr.Header().Set("Content-Type", "application/json")
		_, _ = wr.Write([]byte(`{"access_token":"gho_secret","token_type":"bearer","scope":"repo"}`))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(wr http.ResponseWriter, req *http.Request) {
		f.tokenCalls.Add(1)
		f.tokenHandler(wr, req)
	})
	mux.HandleFunc("/api/user", func(wr http.ResponseWriter, req *http.Request) {
		f.apiCalls.Add(1)
		assert.Equal(t, "Bearer gho_secret", req.Header.Get("Authorization"))
		if f.userStatus != http.StatusOK {
			wr.WriteHeader(f.userStatus)
			_, _ = wr.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_, _ = wr.Write([]byte(`{"login":"octocat","id":1}`))
	})
	mux.HandleFunc("/api/user/repos", func(wr http.ResponseWriter, req *http.Request) {
		f.apiCalls.Add(1)
		assert.Equal(t, "Bearer gho_secret", req.Header.Get("Authorization"))
		_, _ = wr.Write([]byte(`[
			{"full_name":"octocat/hello-world","description":"My first repo"},
			{"full_name":"octo-org/tools","description":null}
		]`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestFlow(t *testing.T, gh *fakeGitHub) (*Flow, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	flow, err := NewFlow(Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RedirectURL:     "http://localhost:8080/callback",
		WebURL:          gh.URL,
		APIURL:          gh.URL + "/api",
		ExchangeTimeout: 100 * time.Millisecond,
	}, zap.New(core), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return flow, logs
}

func TestNewFlow_RequiresCredentials(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	_, err := NewFlow(Config{ClientSecret: "secret"}, zap.NewNop(), meter)
	assert.Error(t, err)
	_, err = NewFlow(Config{ClientID: "id"}, zap.NewNop(), meter)
	assert.Error(t, err)
}

func TestServeLogin(t *testing.T) {
	gh := newFakeGitHub(t)
	flow, logs := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeLogin(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, gh.URL+"/login/oauth/authorize", loc.Scheme+"://"+loc.Host+loc.Path)
	q := loc.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	assert.Equal(t, "repo admin:org", q.Get("scope"))
	assert.Empty(t, q.Get("state"))
	assert.Equal(t, 1, logs.FilterMessage("Redirecting to GitHub for authorization").Len())
	assert.Zero(t, gh.tokenCalls.Load())
}

func TestServeLogin_DefaultEndpoint(t *testing.T) {
	flow, err := NewFlow(Config{ClientID: "id", ClientSecret: "secret"}, zap.NewNop(), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	flow.ServeLogin(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Contains(t, w.Header().Get("Location"), "https://github.com/login/oauth/authorize?")
}

func TestServeCallback_Success(t *testing.T) {
	gh := newFakeGitHub(t)
	flow, logs := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeCallback(w, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication successful")
	assert.EqualValues(t, 1, gh.tokenCalls.Load())
	assert.EqualValues(t, 2, gh.apiCalls.Load())

	user := logs.FilterMessage("Authenticated GitHub user").All()
	require.Len(t, user, 1)
	assert.Equal(t, "octocat", user[0].ContextMap()["login"])

	count := logs.FilterMessage("Fetched repositories").All()
	require.Len(t, count, 1)
	assert.EqualValues(t, 2, count[0].ContextMap()["count"])

	repos := logs.FilterMessage("Repository").All()
	require.Len(t, repos, 2)
	assert.Equal(t, "octocat/hello-world", repos[0].ContextMap()["full_name"])
	assert.Equal(t, "My first repo", repos[0].ContextMap()["description"])
	assert.Equal(t, "octo-org/tools", repos[1].ContextMap()["full_name"])
	assert.Equal(t, "", repos[1].ContextMap()["description"])

	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, "gho_secret")
		for _, v := range entry.ContextMap() {
			if s, ok := v.(string); ok {
				assert.NotContains(t, s, "gho_secret")
			}
		}
	}
}

func TestServeCallback_MissingCode(t *testing.T) {
	gh := newFakeGitHub(t)
	flow, _ := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeCallback(w, httptest.NewRequest(http.MethodGet, "/callback", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, gh.tokenCalls.Load())
	assert.Zero(t, gh.apiCalls.Load())
}

func TestServeCallback_NoAccessToken(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.tokenHandler = func(wr http.ResponseWriter, req *http.Request) {
		_, _ = wr.Write([]byte(`{"error":"bad_verification_code"}`))
	}
	flow, logs := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeCallback(w, httptest.NewRequest(http.MethodGet, "/callback?code=stale", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.EqualValues(t, 1, gh.tokenCalls.Load())
	assert.Zero(t, gh.apiCalls.Load())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestServeCallback_ExchangeTimeout(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.tokenHandler = func(wr http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	flow, logs := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeCallback(w, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.EqualValues(t, 1, gh.tokenCalls.Load())
	assert.Zero(t, gh.apiCalls.Load())
	failures := logs.FilterMessage("OAuth callback failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ContextMap()["error"], "token request")
}

func TestServeCallback_APIFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.userStatus = http.StatusUnauthorized
	flow, logs := newTestFlow(t, gh)

	w := httptest.NewRecorder()
	flow.ServeCallback(w, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Authentication failed\n", w.Body.String())
	assert.EqualValues(t, 1, gh.apiCalls.Load())
	assert.Equal(t, 1, logs.FilterMessage("OAuth callback failed").Len())
	assert.Zero(t, logs.FilterMessage("Authenticated GitHub user").Len())
}
