package models

const (
	RefreshTokenCookie = "refreshToken"
	CSRFCookie         = "csrfToken"

	CSRFHeader = "X-CSRF-Token"

	MwIdentityKey = "identity"
	MwTokenKey    = "token"
)

type ErrorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ErrorResponse is the stable failure envelope; no internal detail beyond
// Message ever reaches it.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}
