package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/ostrovsky/estate-cms/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrNotFound             = errors.New("record not found")
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage interface {
	UserRepository
	RefreshTokenLedger
	PropertyRepository
	ReviewRepository
	ServiceRepository
	ContentBlockRepository
}

type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpsertUser(ctx context.Context, username, passwordHash, role string) (*models.User, error)
}

// RefreshTokenLedger is the persisted store of issued refresh-token jtis.
// Revocation is idempotent; RevokeRefreshToken reports whether this call
// performed the flip, which is what makes rotation single-winner.
type RefreshTokenLedger interface {
	CreateRefreshToken(ctx context.Context, record models.RefreshTokenRecord) (int64, error)
	FindRefreshToken(ctx context.Context, jti string) (*models.RefreshTokenRecord, error)
	RevokeRefreshToken(ctx context.Context, jti string) (bool, error)
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64) error
	RotateRefreshToken(ctx context.Context, oldJTI string, next models.RefreshTokenRecord) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

// AccessTokenDenylist blacklists access tokens until their natural expiry.
// Consulted by the access guard when configured; a nil denylist disables it.
type AccessTokenDenylist interface {
	DenyToken(ctx context.Context, token string, ttl time.Duration) error
	IsTokenDenied(ctx context.Context, token string) (bool, error)
}

type PropertyRepository interface {
	ListProperties(ctx context.Context, publishedOnly bool) ([]models.Property, error)
	ListFeaturedProperties(ctx context.Context) ([]models.Property, error)
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	CreateProperty(ctx context.Context, p models.Property) (*models.Property, error)
	UpdateProperty(ctx context.Context, p models.Property) (*models.Property, error)
	DeleteProperty(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	ListReviews(ctx context.Context, publishedOnly bool) ([]models.Review, error)
	GetReviewByID(ctx context.Context, id int64) (*models.Review, error)
	CreateReview(ctx context.Context, r models.Review) (*models.Review, error)
	UpdateReview(ctx context.Context, r models.Review) (*models.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

type ServiceRepository interface {
	ListServices(ctx context.Context, publishedOnly bool) ([]models.Service, error)
	GetServiceByID(ctx context.Context, id int64) (*models.Service, error)
	CreateService(ctx context.Context, s models.Service) (*models.Service, error)
	UpdateService(ctx context.Context, s models.Service) (*models.Service, error)
	DeleteService(ctx context.Context, id int64) error
}

// ContentBlockRepository stores the hero/about/contact singletons as JSON
// documents keyed by block name.
type ContentBlockRepository interface {
	GetContentBlock(ctx context.Context, name string) (json.RawMessage, error)
	UpsertContentBlock(ctx context.Context, name string, doc json.RawMessage) error
}

// BlobStore is the opaque upload collaborator. Save stores the blob under
// the given name and returns a public URL for it.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
