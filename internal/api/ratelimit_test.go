package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrovsky/estate-cms/internal/util"
)

func TestLoginLimiterBurstThenThrottle(t *testing.T) {
	limiter := NewLoginLimiter(&util.RateLimiterConfig{LoginPerMinute: 1, LoginBurst: 2})

	e := echo.New()
	handler := limiter.Middleware()(okHandler)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		if err != nil {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			statuses = append(statuses, httpErr.Code)
			continue
		}
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestLoginLimiterTracksClientsSeparately(t *testing.T) {
	limiter := NewLoginLimiter(&util.RateLimiterConfig{LoginPerMinute: 1, LoginBurst: 1})

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))
}

func TestLoginLimiterJanitorStopsOnCancel(t *testing.T) {
	limiter := NewLoginLimiter(&util.RateLimiterConfig{LoginPerMinute: 1, LoginBurst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.janitor(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after context cancellation")
	}
}
