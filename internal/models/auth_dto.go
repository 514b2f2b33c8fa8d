package models

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	AccessToken string   `json:"accessToken"`
	User        Identity `json:"user"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
