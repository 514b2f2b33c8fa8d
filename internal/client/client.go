// Package client is the session agent used by the admin frontend proxy and
// by integration tests. It keeps the access token in memory only; refresh
// and CSRF cookies live in the cookie jar, mirroring a browser.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/ostrovsky/estate-cms/internal/models"
)

// APIError carries the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	base       *url.URL
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
}

func New(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		base:       base,
		httpClient: &http.Client{Jar: jar},
	}, nil
}

// AccessToken returns the in-memory token, empty when logged out.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// Login opens a session and stores the access token in memory.
func (c *Client) Login(ctx context.Context, username, password string) (*models.SessionResponse, error) {
	var session models.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &session, false)
	if err != nil {
		return nil, err
	}
	c.setAccessToken(session.AccessToken)
	return &session, nil
}

// Logout tears the session down and drops the in-memory token. The server
// never fails a logout, so any error here is transport-level.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, false)
	c.setAccessToken("")
	return err
}

// FetchCSRF primes the CSRF cookie; call it once before the first mutating
// request of an anonymous session.
func (c *Client) FetchCSRF(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/auth/csrf", nil, nil, false)
}

// Get issues an authenticated GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out, true)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

// do performs one request. When retryAuth is set, a 401 triggers a single
// refresh attempt followed by exactly one replay of the original request; a
// second 401 is returned to the caller as-is, and a failed refresh surfaces
// the original 401 rather than the refresh error.
func (c *Client) do(ctx context.Context, method, path string, body, out any, retryAuth bool) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && retryAuth {
		original := decodeEnvelope(resp, nil)

		if err := c.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				c.setAccessToken("")
			}
			// the caller's failure is the original 401, not whatever
			// went wrong during refresh
			return original
		}

		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
	}

	return decodeEnvelope(resp, out)
}

func (c *Client) refresh(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", nil)
	if err != nil {
		return err
	}

	var session models.SessionResponse
	if err := decodeEnvelope(resp, &session); err != nil {
		return err
	}
	c.setAccessToken(session.AccessToken)
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions {
		if csrf := c.cookieValue(models.CSRFCookie); csrf != "" {
			req.Header.Set(models.CSRFHeader, csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) cookieValue(name string) string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func decodeEnvelope(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope models.ErrorResponse
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Data == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
