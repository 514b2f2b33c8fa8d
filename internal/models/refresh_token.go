package models

import "time"

// RefreshTokenRecord is one row of the refresh-token ledger. A record is
// immutable except for the one-way revoked:false -> revoked:true transition;
// rows past ExpiresAt are dead regardless of the revoked flag.
type RefreshTokenRecord struct {
	ID        int64     `json:"id"`
	JTI       string    `json:"jti"`
	UserID    int64     `json:"user_id"`
	Revoked   bool      `json:"revoked"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *RefreshTokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// RequestMetadata is audit provenance captured at token issuance.
type RequestMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}
