package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
)

type RefreshTokenRepository struct {
	db storage.DBTX
}

func NewRefreshTokenRepository(db storage.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func errRotationLost(jti string) error {
	return fmt.Errorf("refresh token %s: %w", jti, storage.ErrRefreshTokenRevoked)
}

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, record models.RefreshTokenRecord) (int64, error) {
	query := `INSERT INTO refresh_tokens (jti, user_id, revoked, client_ip, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(
		ctx,
		query,
		record.JTI,
		record.UserID,
		record.Revoked,
		record.IPAddress,
		record.UserAgent,
		record.CreatedAt,
		record.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return id, nil
}

func (r *RefreshTokenRepository) FindRefreshToken(ctx context.Context, jti string) (*models.RefreshTokenRecord, error) {
	var record models.RefreshTokenRecord
	query := `SELECT id, jti, user_id, revoked, client_ip, user_agent, created_at, expires_at
		FROM refresh_tokens WHERE jti = $1`
	err := r.db.QueryRowContext(ctx, query, jti).Scan(
		&record.ID,
		&record.JTI,
		&record.UserID,
		&record.Revoked,
		&record.IPAddress,
		&record.UserAgent,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token %s: %w", jti, storage.ErrRefreshTokenNotFound)
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &record, nil
}

// RevokeRefreshToken flips revoked to true and reports whether this call did
// the flip. Revoking an already-revoked or missing jti is a no-op, not an
// error.
func (r *RefreshTokenRepository) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1 AND revoked = FALSE`
	res, err := r.db.ExecContext(ctx, query, jti)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllUserRefreshTokens(ctx context.Context, userID int64) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
