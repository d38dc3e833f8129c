package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiles_FollowLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")

	profile := func(resp apiResponse) map[string]any {
		t.Helper()
		require.Equal(t, http.StatusOK, resp.Status, resp.Body)
		return resp.Body["profile"].(map[string]any)
	}

	p := profile(env.do(t, http.MethodGet, "/api/profiles/bob", alice.Token, nil))
	assert.Equal(t, "bob", p["username"])
	assert.Equal(t, false, p["following"])

	// Following twice is harmless.
	for i := 0; i < 2; i++ {
		p = profile(env.do(t, http.MethodPost, "/api/profiles/bob/follow", alice.Token, nil))
		assert.Equal(t, true, p["following"])
	}
	p = profile(env.do(t, http.MethodGet, "/api/profiles/bob", alice.Token, nil))
	assert.Equal(t, true, p["following"])

	for i := 0; i < 2; i++ {
		p = profile(env.do(t, http.MethodDelete, "/api/profiles/bob/follow", alice.Token, nil))
		assert.Equal(t, false, p["following"])
	}
	p = profile(env.do(t, http.MethodGet, "/api/profiles/bob", alice.Token, nil))
	assert.Equal(t, false, p["following"])
}

func TestProfiles_Errors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{"Unknown user", http.MethodGet, "/api/profiles/ghost", alice.Token, http.StatusNotFound},
		{"Follow unknown user", http.MethodPost, "/api/profiles/ghost/follow", alice.Token, http.StatusNotFound},
		{"Anonymous", http.MethodGet, "/api/profiles/alice", "", http.StatusUnauthorized},
		{"Follow yourself", http.MethodPost, "/api/profiles/alice/follow", alice.Token, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.expectedStatus, resp.Status, resp.Body)
			if tt.expectedStatus == http.StatusBadRequest {
				fields := fieldErrors(t, resp, keyProfile)
				assert.Equal(t, []any{"You cannot follow yourself."}, fields["username"])
			}
		})
	}
}
