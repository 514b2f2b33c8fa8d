package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/util"
)

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return util.NewResponseError(http.StatusBadRequest, "Username and password are required")
	}

	session, err := c.authService.Login(ctx.Request().Context(), req.Username, req.Password, requestMetadata(ctx))
	if err != nil {
		return err
	}

	c.setSessionCookies(ctx, session)

	return ok(ctx, models.SessionResponse{AccessToken: session.AccessToken, User: session.User})
}

// (POST /api/auth/refresh). Rotates the refresh cookie; on any failure the
// cookies are left untouched.
func (c *Controller) Refresh(ctx echo.Context) error {
	refreshToken := cookieValue(ctx, models.RefreshTokenCookie)
	if refreshToken == "" {
		return service.ErrNoSession
	}

	session, err := c.authService.Refresh(ctx.Request().Context(), refreshToken, requestMetadata(ctx))
	if err != nil {
		return err
	}

	c.setSessionCookies(ctx, session)

	return ok(ctx, models.SessionResponse{AccessToken: session.AccessToken, User: session.User})
}

// (POST /api/auth/logout). Never fails visibly: cookies are cleared even
// when no valid token was presented.
func (c *Controller) Logout(ctx echo.Context) error {
	refreshToken := cookieValue(ctx, models.RefreshTokenCookie)

	var accessToken string
	if raw, ok := ctx.Get(models.MwTokenKey).(string); ok {
		accessToken = raw
	} else if header := ctx.Request().Header.Get(echo.HeaderAuthorization); len(header) > len("Bearer ") {
		accessToken = header[len("Bearer "):]
	}

	c.authService.Logout(ctx.Request().Context(), refreshToken, accessToken)

	c.clearSessionCookies(ctx)

	return ctx.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// (GET /api/auth/csrf).
func (c *Controller) GetCSRF(ctx echo.Context) error {
	token, err := c.authService.IssueCSRFToken()
	if err != nil {
		return err
	}

	c.setCookie(ctx, models.CSRFCookie, token, time.Now().Add(c.authService.RefreshTTL()), false)

	return ok(ctx, models.CSRFResponse{CSRFToken: token})
}

func (c *Controller) setSessionCookies(ctx echo.Context, session *service.Session) {
	c.setCookie(ctx, models.RefreshTokenCookie, session.RefreshToken, session.RefreshExpiresAt, true)
	c.setCookie(ctx, models.CSRFCookie, session.CSRFToken, session.RefreshExpiresAt, false)
}

func (c *Controller) clearSessionCookies(ctx echo.Context) {
	c.expireCookie(ctx, models.RefreshTokenCookie, true)
	c.expireCookie(ctx, models.CSRFCookie, false)
}

func (c *Controller) setCookie(ctx echo.Context, name, value string, expires time.Time, httpOnly bool) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cookies.Path,
		Domain:   c.cookies.Domain,
		Expires:  expires,
		Secure:   c.cookies.Secure,
		HttpOnly: httpOnly,
		SameSite: c.cookies.SameSite,
	})
}

func (c *Controller) expireCookie(ctx echo.Context, name string, httpOnly bool) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     c.cookies.Path,
		Domain:   c.cookies.Domain,
		MaxAge:   -1,
		Secure:   c.cookies.Secure,
		HttpOnly: httpOnly,
		SameSite: c.cookies.SameSite,
	})
}

func cookieValue(ctx echo.Context, name string) string {
	cookie, err := ctx.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
