package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/api"
	"github.com/ostrovsky/estate-cms/internal/controller"
	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/storage/blob"
	"github.com/ostrovsky/estate-cms/internal/storage/memory"
	"github.com/ostrovsky/estate-cms/internal/util"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	hash, err := service.HashSecret("password123")
	require.NoError(t, err)
	_, err = store.UpsertUser(context.Background(), "admin", hash, models.RoleAdmin)
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	tokens := service.NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
	})
	authService := service.NewAuthService(tokens, store, store, nil, nil, logger)
	contentService := service.NewContentService(store)

	uploadDir := t.TempDir()
	blobStore, err := blob.NewLocalStore(uploadDir, "/uploads")
	require.NoError(t, err)

	cookies := &util.CookieConfig{Path: "/", Secure: false, SameSite: http.SameSiteLaxMode}
	uploadCfg := &util.UploadConfig{Dir: uploadDir, MaxBytes: 1 << 20, BaseURL: "/uploads"}
	ctrl := controller.NewController(logger, authService, contentService, blobStore, cookies, uploadCfg)

	e := echo.New()
	e.HTTPErrorHandler = api.ErrorHandler(logger)
	e.Use(api.CSRFGuardMiddleware("/api/auth/login", "/api/auth/refresh"))

	guard := api.AccessGuardMiddleware(authService)
	g := e.Group("/api")
	g.POST("/auth/login", ctrl.Login)
	g.POST("/auth/refresh", ctrl.Refresh)
	g.POST("/auth/logout", ctrl.Logout)
	g.GET("/auth/csrf", ctrl.GetCSRF)
	g.GET("/properties", ctrl.ListProperties, api.OptionalAccessMiddleware(authService))
	g.POST("/properties", ctrl.CreateProperty, guard)
	g.POST("/upload", ctrl.Upload, guard)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: server,
		client: &http.Client{Jar: jar},
		store:  store,
	}
}

func (env *testEnv) request(t *testing.T, method, path, csrf, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set(models.CSRFHeader, csrf)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func (env *testEnv) cookie(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	for _, c := range env.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeSession(t *testing.T, raw []byte) models.SessionResponse {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    models.SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func decodeError(t *testing.T, raw []byte) models.ErrorResponse {
	t.Helper()
	var envelope models.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.False(t, envelope.Success)
	return envelope
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	session := decodeSession(t, raw)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "admin", session.User.Username)

	var refreshCookie, csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case models.RefreshTokenCookie:
			refreshCookie = c
		case models.CSRFCookie:
			csrfCookie = c
		}
	}
	require.NotNil(t, refreshCookie)
	require.NotNil(t, csrfCookie)
	assert.True(t, refreshCookie.HttpOnly, "refresh cookie must be httpOnly")
	assert.False(t, csrfCookie.HttpOnly, "csrf cookie must be readable by the frontend")
	assert.NotContains(t, string(raw), refreshCookie.Value, "refresh token never appears in the body")
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	envelope := decodeError(t, raw)
	assert.Equal(t, "Invalid credentials", envelope.Error.Message)
	assert.Equal(t, http.StatusUnauthorized, envelope.Error.StatusCode)
	assert.Empty(t, resp.Cookies(), "failed login must not set cookies")

	resp, raw = env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username and password are required", decodeError(t, raw).Error.Message)
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	firstRefresh := env.cookie(t, models.RefreshTokenCookie)
	require.NotEmpty(t, firstRefresh)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/refresh", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, raw)
	assert.NotEmpty(t, session.AccessToken)

	secondRefresh := env.cookie(t, models.RefreshTokenCookie)
	assert.NotEqual(t, firstRefresh, secondRefresh, "refresh must rotate the cookie")

	// replaying the rotated-out cookie is reuse and kills the whole chain
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: models.RefreshTokenCookie, Value: firstRefresh})
	replayResp, err := (&http.Client{}).Do(req)
	require.NoError(t, err)
	replayRaw, err := io.ReadAll(replayResp.Body)
	require.NoError(t, err)
	require.NoError(t, replayResp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, replayResp.StatusCode)
	assert.Equal(t, "Session revoked", decodeError(t, replayRaw).Error.Message)

	// the successor chain is revoked too
	resp, _ = env.request(t, http.MethodPost, "/api/auth/refresh", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshWithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/refresh", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No active session", decodeError(t, raw).Error.Message)
}

func TestCSRFProtectedMutation(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, raw)
	csrf := env.cookie(t, models.CSRFCookie)
	require.NotEmpty(t, csrf)

	property := models.Property{Image: "a.jpg", Alt: "house", Price: "$1"}

	// cookie present but header absent
	resp, raw = env.request(t, http.MethodPost, "/api/properties", "", session.AccessToken, property)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid CSRF token", decodeError(t, raw).Error.Message)

	// header mismatching the cookie
	resp, _ = env.request(t, http.MethodPost, "/api/properties", "wrong-token", session.AccessToken, property)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// matching pair but no bearer token
	resp, _ = env.request(t, http.MethodPost, "/api/properties", csrf, "", property)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// everything in place
	resp, _ = env.request(t, http.MethodPost, "/api/properties", csrf, session.AccessToken, property)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, raw)
	csrf := env.cookie(t, models.CSRFCookie)

	resp, raw = env.request(t, http.MethodPost, "/api/auth/logout", csrf, session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.SuccessResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Success)

	for _, c := range resp.Cookies() {
		assert.Less(t, c.MaxAge, 0, "cookie %s must be expired", c.Name)
	}

	for _, r := range env.store.Records(session.User.ID) {
		assert.True(t, r.Revoked)
	}

	resp, _ = env.request(t, http.MethodPost, "/api/auth/refresh", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	// CSRF guard still applies to logout, so prime the cookie first
	resp, raw := env.request(t, http.MethodGet, "/api/auth/csrf", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var envelope struct {
		Success bool                `json:"success"`
		Data    models.CSRFResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.NotEmpty(t, envelope.Data.CSRFToken)

	resp, raw = env.request(t, http.MethodPost, "/api/auth/logout", envelope.Data.CSRFToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.SuccessResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Success)
}

func TestPublicListHidesDrafts(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/auth/login", "", "",
		models.LoginRequest{Username: "admin", Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, raw)
	csrf := env.cookie(t, models.CSRFCookie)

	resp, _ = env.request(t, http.MethodPost, "/api/properties", csrf, session.AccessToken,
		models.Property{Image: "a.jpg", Alt: "published", Price: "$1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.request(t, http.MethodPost, "/api/properties", csrf, session.AccessToken,
		models.Property{Image: "b.jpg", Alt: "draft", Price: "$2", Status: models.StatusDraft})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := func(t *testing.T, bearer string) []models.Property {
		resp, raw := env.request(t, http.MethodGet, "/api/properties", "", bearer, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var envelope struct {
			Success bool              `json:"success"`
			Data    []models.Property `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope))
		return envelope.Data
	}

	assert.Len(t, list(t, ""), 1, "anonymous callers see published only")
	assert.Len(t, list(t, session.AccessToken), 2, "authenticated callers see drafts")
}
