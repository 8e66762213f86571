package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"igunfollow/internal/runner"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/config"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/unfollow"
)

// mockInstagram serves just enough of the web API for one full run
type mockInstagram struct {
	mu        sync.Mutex
	server    *httptest.Server
	password  string
	followers []string
	following []string
	errors    map[string]int
	requests  map[string]int
	destroyed []string
	loggedOut bool
}

func newMockInstagram(t *testing.T) *mockInstagram {
	m := &mockInstagram{
		password: "hunter2",
		errors:   make(map[string]int),
		requests: make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

// SetErrorResponse makes the destroy call for accountID fail with code
func (m *mockInstagram) SetErrorResponse(accountID string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[accountID] = code
}

func (m *mockInstagram) GetRequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func (m *mockInstagram) Destroyed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.destroyed...)
}

func (m *mockInstagram) LoggedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedOut
}

func (m *mockInstagram) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.URL.Path]++

	switch {
	case r.URL.Path == instagram.LoginPageEndpoint:
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-e2e", Path: "/"})
		w.WriteHeader(http.StatusOK)

	case r.URL.Path == instagram.LoginEndpoint:
		_ = r.ParseForm()
		ok := strings.HasSuffix(r.PostForm.Get("enc_password"), ":"+m.password)
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": ok, "user": true, "userId": "42", "status": "ok"})

	case r.URL.Path == instagram.LogoutEndpoint:
		m.loggedOut = true
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})

	case strings.HasPrefix(r.URL.Path, "/api/v1/friendships/destroy/"):
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/friendships/destroy/"), "/")
		if code, fail := m.errors[id]; fail {
			writeJSON(w, code, map[string]interface{}{"status": "fail", "message": "feedback_required"})
			return
		}
		m.destroyed = append(m.destroyed, id)
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})

	case strings.HasSuffix(r.URL.Path, "/followers/"):
		writeJSON(w, http.StatusOK, page(m.followers))

	case strings.HasSuffix(r.URL.Path, "/following/"):
		writeJSON(w, http.StatusOK, page(m.following))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func page(ids []string) map[string]interface{} {
	users := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		users = append(users, map[string]interface{}{"pk": id, "username": "user" + id})
	}
	return map[string]interface{}{"users": users, "status": "ok"}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// isolateCredentialStores points every credential store at empty test state
func isolateCredentialStores(t *testing.T) {
	keyring.MockInit()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(auth.PassphraseEnv, "test-passphrase")
	t.Setenv(config.EnvInstagramUser, "")
	t.Setenv(config.EnvInstagramPassword, "")
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Instagram.Username = "me"
	cfg.Instagram.Password = "hunter2"
	cfg.Instagram.BaseURL = baseURL
	cfg.Instagram.Timeout = 5 * time.Second
	cfg.Instagram.PageDelay = 0
	cfg.Unfollow.FetchRetryDelay = 0
	cfg.Unfollow.SettleDelay = 0
	cfg.Unfollow.MinDelay = 0
	cfg.Unfollow.MaxDelay = 0
	cfg.Unfollow.FailureDelay = 0
	return cfg
}

func TestCredentialSource(t *testing.T) {
	t.Run("config credentials", func(t *testing.T) {
		isolateCredentialStores(t)
		cfg := testConfig("http://unused")

		creds, err := credentialSource(cfg, "")(context.Background())
		require.NoError(t, err)
		assert.Equal(t, unfollow.Credentials{Username: "me", Password: "hunter2"}, creds)
	})

	t.Run("falls back to the credential store", func(t *testing.T) {
		isolateCredentialStores(t)
		manager, err := auth.NewManager()
		require.NoError(t, err)
		require.NoError(t, manager.Store(&auth.Account{Username: "stored", Password: "secret"}))

		cfg := testConfig("http://unused")
		creds, err := credentialSource(cfg, "stored")(context.Background())
		require.NoError(t, err)
		assert.Equal(t, unfollow.Credentials{Username: "stored", Password: "secret"}, creds)
	})

	t.Run("nothing configured", func(t *testing.T) {
		isolateCredentialStores(t)
		cfg := testConfig("http://unused")
		cfg.Instagram.Username = ""
		cfg.Instagram.Password = ""

		_, err := credentialSource(cfg, "")(context.Background())
		var cfgErr *unfollow.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.ElementsMatch(t, []string{config.EnvInstagramUser, config.EnvInstagramPassword}, cfgErr.Missing)
	})
}

func TestRunEndToEnd(t *testing.T) {
	isolateCredentialStores(t)
	logger.SetLogger(logger.NewTestLogger())
	defer logger.SetLogger(nil)

	mock := newMockInstagram(t)
	mock.followers = []string{"1", "2"}
	mock.following = []string{"1", "3", "4", "5"}
	mock.SetErrorResponse("4", http.StatusBadRequest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, pool := newRunner(ctx, testConfig(mock.server.URL), "")
	defer pool.Stop()

	var accepted string
	outcome := r.Invoke(ctx, runner.Request{
		Invoker:    "cli",
		OnAccepted: func(runID string) { accepted = runID },
	})

	require.Equal(t, runner.StatusCompleted, outcome.Status, "err: %v", outcome.Err)
	require.NotNil(t, outcome.Result)
	assert.NotEmpty(t, accepted)
	assert.Equal(t, accepted, outcome.RunID)

	result := outcome.Result
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.TotalFollowing)
	assert.Equal(t, 2, result.TotalFollowers)
	assert.Equal(t, 3, result.NonReciprocalCount)
	assert.Equal(t, 2, result.Unfollowed)
	assert.Equal(t, 1, result.Failed)

	assert.Equal(t, []string{"3", "5"}, mock.Destroyed())
	assert.True(t, mock.LoggedOut())
	assert.Equal(t, 1, mock.GetRequestCount(instagram.LoginEndpoint))

	status := r.Gate().Check()
	assert.True(t, status.OnCooldown)
	assert.Equal(t, "cli", status.LastUser)

	again := r.Invoke(ctx, runner.Request{Invoker: "someone-else"})
	assert.Equal(t, runner.StatusCooldown, again.Status)
	assert.Equal(t, 1, mock.GetRequestCount(instagram.LoginEndpoint), "a refused run must not contact Instagram")
}

func TestRunEndToEndDryRun(t *testing.T) {
	isolateCredentialStores(t)
	logger.SetLogger(logger.NewTestLogger())
	defer logger.SetLogger(nil)

	mock := newMockInstagram(t)
	mock.followers = []string{"1"}
	mock.following = []string{"1", "2"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, pool := newRunner(ctx, testConfig(mock.server.URL), "")
	defer pool.Stop()

	outcome := r.Invoke(ctx, runner.Request{Invoker: "cli", DryRun: true})
	require.Equal(t, runner.StatusCompleted, outcome.Status, "err: %v", outcome.Err)
	assert.True(t, outcome.Result.DryRun)
	assert.Equal(t, 1, outcome.Result.NonReciprocalCount)
	assert.Empty(t, mock.Destroyed())
	assert.False(t, r.Gate().Check().OnCooldown)
}

func TestRunEndToEndBadPassword(t *testing.T) {
	isolateCredentialStores(t)
	logger.SetLogger(logger.NewTestLogger())
	defer logger.SetLogger(nil)

	mock := newMockInstagram(t)
	cfg := testConfig(mock.server.URL)
	cfg.Instagram.Password = "wrong"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, pool := newRunner(ctx, cfg, "")
	defer pool.Stop()

	outcome := r.Invoke(ctx, runner.Request{Invoker: "cli"})
	assert.Equal(t, runner.StatusFailed, outcome.Status)
	assert.Error(t, outcome.Err)
	assert.Equal(t, 0, mock.GetRequestCount("/api/v1/friendships/42/following/"))
	assert.False(t, r.Gate().Check().OnCooldown)
}
