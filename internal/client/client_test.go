package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrovsky/estate-cms/internal/models"
)

const (
	refreshModeOK   = ""
	refreshModeDeny = "deny"
	refreshModeDrop = "drop"
)

// stubBackend mimics the auth endpoints: login and refresh hand out
// generation-numbered access tokens, and the protected endpoint only accepts
// the latest generation. refreshMode selects how /api/auth/refresh fails.
type stubBackend struct {
	mu            sync.Mutex
	generation    int
	refreshMode   string
	refreshCalls  int
	resourceCalls int
	lastCSRF      string
}

func (b *stubBackend) currentToken() string {
	return map[int]string{0: "token-0", 1: "token-1", 2: "token-2", 3: "token-3"}[b.generation]
}

func (b *stubBackend) writeSession(w http.ResponseWriter) {
	b.generation++
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": models.SessionResponse{
			AccessToken: b.currentToken(),
			User:        models.Identity{ID: 1, Username: "admin", Role: models.RoleAdmin},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{
		Success: false,
		Error:   models.ErrorBody{Message: message, StatusCode: status},
	})
}

func newStubServer(t *testing.T, backend *stubBackend) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		defer backend.mu.Unlock()

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "password123" {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: models.RefreshTokenCookie, Value: "refresh-1", Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: models.CSRFCookie, Value: "csrf-1", Path: "/"})
		backend.writeSession(w)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		defer backend.mu.Unlock()

		backend.refreshCalls++
		switch backend.refreshMode {
		case refreshModeDeny:
			writeError(w, http.StatusUnauthorized, "Session revoked")
			return
		case refreshModeDrop:
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			require.NoError(t, conn.Close())
			return
		}
		if _, err := r.Cookie(models.RefreshTokenCookie); err != nil {
			writeError(w, http.StatusUnauthorized, "No active session")
			return
		}
		backend.writeSession(w)
	})
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.Lock()
		defer backend.mu.Unlock()

		backend.resourceCalls++
		backend.lastCSRF = r.Header.Get(models.CSRFHeader)
		if r.Header.Get("Authorization") != "Bearer "+backend.currentToken() {
			writeError(w, http.StatusUnauthorized, "Access denied. Token expired.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"status": "ok"}})
	})
	mux.HandleFunc("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientLogin(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)

	session, err := c.Login(context.Background(), "admin", "password123")
	require.NoError(t, err)
	assert.Equal(t, "token-1", session.AccessToken)
	assert.Equal(t, "token-1", c.AccessToken())
}

func TestClientLoginFailure(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "admin", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Empty(t, c.AccessToken())
}

func TestClientRetriesOnceAfterRefresh(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "admin", "password123")
	require.NoError(t, err)

	// invalidate the client's token server-side
	backend.mu.Lock()
	backend.generation++
	backend.mu.Unlock()

	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/api/protected", &out))
	assert.Equal(t, "ok", out["status"])

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.refreshCalls)
	assert.Equal(t, 2, backend.resourceCalls, "original request plus exactly one replay")
}

func TestClientRefreshFailurePropagatesOriginal401(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "admin", "password123")
	require.NoError(t, err)

	backend.mu.Lock()
	backend.generation++
	backend.refreshMode = refreshModeDeny
	backend.mu.Unlock()

	var out map[string]string
	err = c.Get(context.Background(), "/api/protected", &out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Access denied. Token expired.", apiErr.Message,
		"caller gets the original failure, not the refresh endpoint's")
	assert.Empty(t, c.AccessToken(), "failed refresh drops the stored token")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.resourceCalls, "no replay after a failed refresh")
}

func TestClientRefreshConnectionDropStillReturns401(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "admin", "password123")
	require.NoError(t, err)

	backend.mu.Lock()
	backend.generation++
	backend.refreshMode = refreshModeDrop
	backend.mu.Unlock()

	// even when refresh dies at the transport level, the caller must see
	// the original 401 and not a bare network error
	err = c.Get(context.Background(), "/api/protected", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Access denied. Token expired.", apiErr.Message)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.refreshCalls)
	assert.Equal(t, 1, backend.resourceCalls)
}

func TestClientContextCancellation(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = c.Get(ctx, "/api/slow", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientSendsCSRFHeaderOnMutations(t *testing.T) {
	backend := &stubBackend{}
	server := newStubServer(t, backend)

	c, err := New(server.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "admin", "password123")
	require.NoError(t, err)

	require.NoError(t, c.Post(context.Background(), "/api/protected", map[string]string{"k": "v"}, nil))
	backend.mu.Lock()
	assert.Equal(t, "csrf-1", backend.lastCSRF)
	backend.mu.Unlock()

	// GETs carry no CSRF header
	require.NoError(t, c.Get(context.Background(), "/api/protected", nil))
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.lastCSRF)
}
