package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/obs"
	"github.com/ostrovsky/estate-cms/internal/service"
)

const bearerPrefix = "Bearer "

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, bearerPrefix)
}

// AccessGuardMiddleware protects a route with the bearer access token. The
// resolved identity lands in the echo context for downstream handlers; role
// and username come from the user row, never from unverified claims.
func AccessGuardMiddleware(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			identity, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(models.MwIdentityKey, identity)
			c.Set(models.MwTokenKey, token)

			return next(c)
		}
	}
}

// OptionalAccessMiddleware resolves the identity when a valid bearer token
// is present but lets anonymous requests through. Public list endpoints use
// it to show drafts to the admin panel only.
func OptionalAccessMiddleware(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := bearerToken(c); token != "" {
				if identity, err := auth.Authenticate(c.Request().Context(), token); err == nil {
					c.Set(models.MwIdentityKey, identity)
					c.Set(models.MwTokenKey, token)
				}
			}
			return next(c)
		}
	}
}

// IdentityFromContext returns the identity set by the access guard.
func IdentityFromContext(c echo.Context) (models.Identity, bool) {
	identity, ok := c.Get(models.MwIdentityKey).(models.Identity)
	return identity, ok
}

var safeMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// CSRFGuardMiddleware enforces the double-submit cookie check on every
// state-changing call. login and refresh are exempt: no CSRF cookie can
// exist before the first token issuance.
func CSRFGuardMiddleware(exemptPaths ...string) echo.MiddlewareFunc {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := safeMethods[c.Request().Method]; ok {
				return next(c)
			}
			if _, ok := exempt[c.Request().URL.Path]; ok {
				return next(c)
			}

			cookie, err := c.Cookie(models.CSRFCookie)
			header := c.Request().Header.Get(models.CSRFHeader)

			if err != nil || cookie.Value == "" || header == "" || cookie.Value != header {
				obs.CSRFRejectionsTotal.Inc()
				return echo.NewHTTPError(http.StatusForbidden, "Invalid CSRF token")
			}

			return next(c)
		}
	}
}

func GetLoggerMiddlewareConfig(log *zap.SugaredLogger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Errorw("Request", fields...)
			} else {
				log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
