package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.Header.Get("X-Auth-User") != "user" || r.Header.Get("X-Auth-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-Storage-Url", "https://storage.example.com/v1/AUTH_user")
		w.Header().Set("X-Auth-Token", "tk-123")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSwiftAuthHandshake(t *testing.T) {
	calls := 0
	server := newAuthServer(t, &calls)
	auth := NewSwiftAuth(ProviderConfig{AuthURL: server.URL, User: "user", Key: "key"})

	creds, authErr := auth.Authenticate(context.Background())

	require.NoError(t, authErr)
	assert.Equal(t, "https://storage.example.com/v1/AUTH_user", creds.StorageURL)
	assert.Equal(t, "tk-123", creds.Token)
	assert.Equal(t, 1, calls)
}

func TestSwiftAuthRejected(t *testing.T) {
	calls := 0
	server := newAuthServer(t, &calls)
	auth := NewSwiftAuth(ProviderConfig{AuthURL: server.URL, User: "user", Key: "wrong"})

	_, authErr := auth.Authenticate(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, authErr, &transportErr)
	assert.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
}

func TestSwiftAuthTokenCache(t *testing.T) {
	calls := 0
	server := newAuthServer(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "tokens.yaml")
	pc := ProviderConfig{AuthURL: server.URL, User: "user", Key: "key", TokenPath: tokenPath, SaveTokens: true}

	_, firstErr := NewSwiftAuth(pc).Authenticate(context.Background())
	require.NoError(t, firstErr)
	info, statErr := os.Stat(tokenPath)
	require.NoError(t, statErr)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	creds, secondErr := NewSwiftAuth(pc).Authenticate(context.Background())

	require.NoError(t, secondErr)
	assert.Equal(t, "tk-123", creds.Token)
	assert.Equal(t, 1, calls)
}

func TestSwiftAuthIgnoresIncompleteTokenFile(t *testing.T) {
	calls := 0
	server := newAuthServer(t, &calls)
	tokenPath := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(tokenPath, []byte("token: only\n"), 0600))

	creds, authErr := NewSwiftAuth(ProviderConfig{AuthURL: server.URL, User: "user", Key: "key", TokenPath: tokenPath}).Authenticate(context.Background())

	require.NoError(t, authErr)
	assert.Equal(t, "tk-123", creds.Token)
	assert.Equal(t, 1, calls)
}

func TestStaticAuth(t *testing.T) {
	creds, authErr := StaticAuth{Credentials: Credentials{StorageURL: "https://s", Token: "t"}}.Authenticate(context.Background())
	assert.Nil(t, authErr)
	assert.Equal(t, "t", creds.Token)

	_, missingErr := StaticAuth{}.Authenticate(context.Background())
	assert.NotNil(t, missingErr)
}
