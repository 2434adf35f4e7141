package mdm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&config.Config{
		ServerURL:      srv.URL,
		Username:       "admin",
		Password:       "secret",
		MaxConnections: 5,
		RetryAttempts:  2,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	c.retryBackoff = time.Millisecond
	return c
}

// installAuth wires a token endpoint that issues a one-hour token and
// returns a counter of issuance calls.
func installAuth(mux *http.ServeMux) *atomic.Int32 {
	calls := &atomic.Int32{}
	mux.HandleFunc("POST /uapi/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"token":   "test-token",
			"expires": time.Now().Add(time.Hour).UnixMilli(),
		})
	})
	return calls
}

func authenticate(t *testing.T, c *Client) {
	t.Helper()
	require.NoError(t, c.Authenticate(context.Background()))
}

func TestNewRequiresServerURL(t *testing.T) {
	_, err := New(&config.Config{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(&config.Config{ServerURL: "not a url"})
	assert.Error(t, err)
}

func TestAuthenticateLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	installAuth(mux)
	c := newTestClient(t, mux)

	assert.False(t, c.Authenticated())

	authenticate(t, c)
	assert.True(t, c.Authenticated())

	// Past expiry flips the state back without any network call.
	held := c.expiry
	c.expiry = time.Now().Add(-time.Hour)
	assert.False(t, c.Authenticated())

	c.expiry = held
	c.token = ""
	assert.False(t, c.Authenticated())
}

func TestAuthenticateUsesBasicThenBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uapi/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]any{
			"token":   "test-token",
			"expires": time.Now().Add(time.Hour).UnixMilli(),
		})
	})
	mux.HandleFunc("POST /uapi/auth/current", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, mux)
	authenticate(t, c)

	ok, err := c.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uapi/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)
	err := c.Authenticate(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Detail, "bad credentials")
	assert.False(t, c.Authenticated())
}

func TestValidateFalseOnRejection(t *testing.T) {
	mux := http.NewServeMux()
	installAuth(mux)
	mux.HandleFunc("POST /uapi/auth/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)
	authenticate(t, c)

	ok, err := c.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	// Validation never alters session state.
	assert.True(t, c.Authenticated())
}

func TestInvalidateIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	installAuth(mux)
	invalidations := &atomic.Int32{}
	mux.HandleFunc("POST /uapi/auth/invalidateToken", func(w http.ResponseWriter, r *http.Request) {
		invalidations.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux)
	authenticate(t, c)

	require.NoError(t, c.Invalidate(context.Background()))
	assert.False(t, c.Authenticated())
	assert.Equal(t, int32(1), invalidations.Load())

	// Second call is a local no-op.
	require.NoError(t, c.Invalidate(context.Background()))
	assert.Equal(t, int32(1), invalidations.Load())
}

func TestInvalidateFailureKeepsState(t *testing.T) {
	mux := http.NewServeMux()
	installAuth(mux)
	mux.HandleFunc("POST /uapi/auth/invalidateToken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	authenticate(t, c)

	err := c.Invalidate(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)

	// A failed invalidation must not half-clear the session.
	assert.True(t, c.Authenticated())
}

func TestCloseInvalidatesToken(t *testing.T) {
	mux := http.NewServeMux()
	installAuth(mux)
	invalidations := &atomic.Int32{}
	mux.HandleFunc("POST /uapi/auth/invalidateToken", func(w http.ResponseWriter, r *http.Request) {
		invalidations.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux)
	authenticate(t, c)

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, int32(1), invalidations.Load())
	assert.False(t, c.Authenticated())
}

func TestAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /uapi/v1/jamf-pro-server-url", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// 401 still counts as reachable.
	ok, err := Available(context.Background(), srv.URL, "", false)
	require.NoError(t, err)
	assert.True(t, ok)

	srv.Close()
	_, err = Available(context.Background(), srv.URL, "", false)
	assert.Error(t, err)
}
