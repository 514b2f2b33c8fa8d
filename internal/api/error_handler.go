package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/util"
)

// ErrorHandler maps the auth error taxonomy onto the stable response
// envelope. Anything unrecognized becomes a 500 with a generic message;
// internal detail never reaches the client.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)

		if status == http.StatusInternalServerError {
			log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
		}

		writeErr := c.JSON(status, models.ErrorResponse{
			Success: false,
			Error:   models.ErrorBody{Message: message, StatusCode: status},
		})
		if writeErr != nil {
			log.Errorw("failed to write json response", "error", writeErr)
		}
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrNoSession):
		return http.StatusUnauthorized, "No active session"
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusUnauthorized, "Invalid session"
	case errors.Is(err, service.ErrSessionRevoked):
		return http.StatusUnauthorized, "Session revoked"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "Access denied. No token provided."
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Access denied. Token expired."
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrTokenMalformed):
		return http.StatusUnauthorized, "Access denied. Invalid token."
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, "Access denied. User not found."
	}

	var respErr util.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status, respErr.Msg
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}

	return http.StatusInternalServerError, "internal server error"
}
