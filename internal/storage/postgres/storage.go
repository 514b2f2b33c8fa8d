package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ostrovsky/estate-cms/internal/models"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RefreshTokenRepository
	*ContentRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RefreshTokenRepository: NewRefreshTokenRepository(db),
		ContentRepository:      NewContentRepository(db),
	}
}

// RotateRefreshToken revokes the old record and inserts its successor as one
// transaction. The revoke is conditional on revoked = FALSE; when another
// rotation already won the race zero rows are affected and the whole
// transaction aborts with ErrRefreshTokenRevoked, so two concurrent refreshes
// with the same cookie can never produce two live chains.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldJTI string, next models.RefreshTokenRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ledgerTx := NewRefreshTokenRepository(tx)

	flipped, err := ledgerTx.RevokeRefreshToken(ctx, oldJTI)
	if err != nil {
		return fmt.Errorf("revoke old refresh token in tx: %w", err)
	}
	if !flipped {
		return errRotationLost(oldJTI)
	}

	if _, err := ledgerTx.CreateRefreshToken(ctx, next); err != nil {
		return fmt.Errorf("create successor refresh token in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
