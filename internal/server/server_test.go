package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conduit/internal/auth"
	"conduit/internal/config"
	"conduit/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	rdb *redis.Client
}

func testConfig() *config.Config {
	return &config.Config{
		Env:           "test",
		Port:          "0",
		JWTSecret:     testSecret,
		JWTIssuer:     "conduit-api",
		JWTAccessTTL:  time.Hour,
		JWTRefreshTTL: 24 * time.Hour,
	}
}

// newTestEnv wires a full server over in-memory sqlite and miniredis.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.OpenSQLite(t)
	_, rdb := testutil.StartRedis(t)

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	srv.userService.WithHashCost(bcrypt.MinCost)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, rdb: rdb}
}

type apiResponse struct {
	Status int
	Header http.Header
	Body   map[string]any
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) apiResponse {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := apiResponse{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

type registered struct {
	Username string
	Email    string
	Token    string
}

func (e *testEnv) register(t *testing.T, username string) registered {
	t.Helper()
	email := username + "@example.com"
	resp := e.do(t, http.MethodPost, "/api/users", "", map[string]any{
		"user": map[string]string{"username": username, "email": email, "password": "Secret123!"},
	})
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	user := resp.Body["user"].(map[string]any)
	return registered{Username: username, Email: email, Token: user["token"].(string)}
}

func (e *testEnv) createArticle(t *testing.T, token, title string, tags ...string) map[string]any {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	resp := e.do(t, http.MethodPost, "/api/articles", token, map[string]any{
		"article": map[string]any{"title": title, "description": "d", "body": "b", "tagList": tags},
	})
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	return resp.Body["article"].(map[string]any)
}

// fieldErrors digs {"<key>": {"<field>": [...]}} out of a 400 body.
func fieldErrors(t *testing.T, resp apiResponse, key string) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, resp.Status, resp.Body)
	fields, ok := resp.Body[key].(map[string]any)
	require.True(t, ok, "expected %q envelope in %v", key, resp.Body)
	return fields
}

func TestNewServerWithDeps_RequiresDB(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	live := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, live.Status)
	assert.Equal(t, "up", live.Body["status"])

	ready := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, ready.Status)
	checks := ready.Body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestReadinessCheck_WithoutRedis(t *testing.T) {
	db := testutil.OpenSQLite(t)
	srv, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)
	env := &testEnv{srv: srv, app: srv.NewApp(), db: db}

	ready := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, ready.Status)
	assert.Equal(t, "disabled", ready.Body["checks"].(map[string]any)["redis"])
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	refresh, err := env.srv.tokens.Issue(1, auth.TypeRefresh)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"Token scheme", "Token " + alice.Token, http.StatusOK},
		{"Bearer scheme", "Bearer " + alice.Token, http.StatusOK},
		{"Missing header", "", http.StatusUnauthorized},
		{"Garbage token", "Token not-a-jwt", http.StatusUnauthorized},
		{"Refresh token as access", "Token " + refresh, http.StatusUnauthorized},
		{"Unknown scheme", "Basic " + alice.Token, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestOptionalUserID_IgnoresBadTokens(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.createArticle(t, alice.Token, "Open Letter")

	resp := env.do(t, http.MethodGet, "/api/articles/open-letter", "broken", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, false, resp.Body["article"].(map[string]any)["favorited"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
