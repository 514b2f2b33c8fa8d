package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
)

// Store is an in-memory storage.Storage used by tests and local runs.
// The single mutex gives it the same single-winner rotation semantics the
// postgres conditional update provides.
type Store struct {
	mu sync.RWMutex

	users       map[int64]models.User
	usersByName map[string]int64
	nextUserID  int64

	tokens      map[string]models.RefreshTokenRecord
	nextTokenID int64

	content *contentStore
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int64]models.User),
		usersByName: make(map[string]int64),
		tokens:      make(map[string]models.RefreshTokenRecord),
		content:     newContentStore(),
	}
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

func (s *Store) UpsertUser(_ context.Context, username, passwordHash, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if id, ok := s.usersByName[username]; ok {
		user := s.users[id]
		user.PasswordHash = passwordHash
		user.Role = role
		user.UpdatedAt = now
		s.users[id] = user
		return &user, nil
	}

	s.nextUserID++
	user := models.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	s.usersByName[username] = user.ID
	return &user, nil
}

func (s *Store) CreateRefreshToken(_ context.Context, record models.RefreshTokenRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[record.JTI]; exists {
		return 0, fmt.Errorf("duplicate jti %s", record.JTI)
	}

	s.nextTokenID++
	record.ID = s.nextTokenID
	s.tokens[record.JTI] = record
	return record.ID, nil
}

func (s *Store) FindRefreshToken(_ context.Context, jti string) (*models.RefreshTokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[jti]
	if !ok {
		return nil, storage.ErrRefreshTokenNotFound
	}
	return &record, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revokeLocked(jti), nil
}

func (s *Store) revokeLocked(jti string) bool {
	record, ok := s.tokens[jti]
	if !ok || record.Revoked {
		return false
	}
	record.Revoked = true
	s.tokens[jti] = record
	return true
}

func (s *Store) RevokeAllUserRefreshTokens(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, record := range s.tokens {
		if record.UserID == userID && !record.Revoked {
			record.Revoked = true
			s.tokens[jti] = record
		}
	}
	return nil
}

// RotateRefreshToken performs check-and-flip plus the successor insert under
// one mutex hold, mirroring the postgres transaction.
func (s *Store) RotateRefreshToken(_ context.Context, oldJTI string, next models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.revokeLocked(oldJTI) {
		return fmt.Errorf("refresh token %s: %w", oldJTI, storage.ErrRefreshTokenRevoked)
	}

	s.nextTokenID++
	next.ID = s.nextTokenID
	s.tokens[next.JTI] = next
	return nil
}

func (s *Store) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for jti, record := range s.tokens {
		if record.ExpiresAt.Before(before) {
			delete(s.tokens, jti)
			removed++
		}
	}
	return removed, nil
}

// Records returns a snapshot of all ledger rows for a user, newest last.
// Test helper.
func (s *Store) Records(userID int64) []models.RefreshTokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RefreshTokenRecord
	for _, record := range s.tokens {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out
}
