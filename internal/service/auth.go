package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/obs"
	"github.com/ostrovsky/estate-cms/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrUnauthenticated    = errors.New("access denied, no token provided")
	ErrUserNotFound       = errors.New("access denied, user not found")
)

// Session is everything one successful login or rotation produces. The
// controller turns RefreshToken and CSRFToken into cookies; AccessToken goes
// to the client in the response body only.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	CSRFToken        string
	User             models.Identity
}

type AuthService struct {
	tokens   *TokenService
	users    storage.UserRepository
	ledger   storage.RefreshTokenLedger
	denylist storage.AccessTokenDenylist
	notifier SecurityNotifier
	log      *zap.SugaredLogger
}

// NewAuthService wires the auth core. denylist may be nil (no Redis); the
// access guard then relies on token expiry alone.
func NewAuthService(
	tokens *TokenService,
	users storage.UserRepository,
	ledger storage.RefreshTokenLedger,
	denylist storage.AccessTokenDenylist,
	notifier SecurityNotifier,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		tokens:   tokens,
		users:    users,
		ledger:   ledger,
		denylist: denylist,
		notifier: notifier,
		log:      log,
	}
}

// Login verifies credentials and opens a fresh session chain. Exactly one
// ledger record is created; if that write fails no tokens are handed out.
func (s *AuthService) Login(ctx context.Context, username, password string, meta models.RequestMetadata) (*Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			obs.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	if err := VerifySecret(user.PasswordHash, password); err != nil {
		obs.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	refreshToken, jti, refreshExpiresAt, err := s.tokens.CreateRefreshToken(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	if _, err := s.ledger.CreateRefreshToken(ctx, models.RefreshTokenRecord{
		JTI:       jti,
		UserID:    user.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	session, err := s.finishSession(user.Identity(), refreshToken, refreshExpiresAt, now)
	if err != nil {
		return nil, err
	}

	obs.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Infow("login", "user", user.Username, "jti", jti, "ip", meta.IPAddress)
	return session, nil
}

// Refresh runs the rotation state machine over one inbound refresh token:
// verify signature, look the jti up, then revoke-and-replace as one unit.
// A revoked jti presented again is treated as reuse: the whole chain for
// that user is revoked and the security notifier fires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta models.RequestMetadata) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	jti, userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		// structurally bad tokens never touch storage
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	record, err := s.ledger.FindRefreshToken(ctx, jti)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	now := time.Now()
	if record.Revoked {
		s.handleReuse(ctx, record, meta)
		return nil, ErrSessionRevoked
	}
	if record.Expired(now) {
		return nil, ErrSessionRevoked
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	newRefreshToken, newJTI, refreshExpiresAt, err := s.tokens.CreateRefreshToken(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	err = s.ledger.RotateRefreshToken(ctx, jti, models.RefreshTokenRecord{
		JTI:       newJTI,
		UserID:    user.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
	})
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenRevoked) {
			// lost a concurrent rotation on the same jti
			obs.RotationsTotal.WithLabelValues("lost_race").Inc()
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	session, err := s.finishSession(user.Identity(), newRefreshToken, refreshExpiresAt, now)
	if err != nil {
		return nil, err
	}

	obs.RotationsTotal.WithLabelValues("success").Inc()
	s.log.Infow("refresh rotated", "user", user.Username, "old_jti", jti, "new_jti", newJTI)
	return session, nil
}

// Logout revokes the presented chain and denylists the presented access
// token. It never fails: undecodable cookies and storage errors are logged
// and swallowed so the caller can always clear its cookies.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) {
	if refreshToken != "" {
		if jti, userID, err := s.tokens.ParseRefreshToken(refreshToken); err == nil {
			if err := s.ledger.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
				s.log.Errorw("logout: revoke user refresh tokens", "error", err, "jti", jti)
			}
		} else {
			s.log.Debugw("logout with undecodable refresh token", "error", err)
		}
	}

	if accessToken != "" && s.denylist != nil {
		ttl, err := s.tokens.RemainingAccessTTL(accessToken, time.Now())
		if err == nil && ttl > 0 {
			if err := s.denylist.DenyToken(ctx, accessToken, ttl); err != nil {
				s.log.Errorw("logout: denylist access token", "error", err)
			}
		}
	}
}

// Authenticate backs the access guard: denylist check, signature and expiry
// verification, then user re-resolution so deleted accounts lose access
// before their tokens expire. The returned identity comes from the user row,
// not the token claims.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.Identity, error) {
	if accessToken == "" {
		return models.Identity{}, ErrUnauthenticated
	}

	if s.denylist != nil {
		denied, err := s.denylist.IsTokenDenied(ctx, accessToken)
		if err != nil {
			return models.Identity{}, fmt.Errorf("denylist check: %w", err)
		}
		if denied {
			return models.Identity{}, ErrTokenInvalid
		}
	}

	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return models.Identity{}, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return models.Identity{}, ErrTokenInvalid
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Identity{}, ErrUserNotFound
		}
		return models.Identity{}, fmt.Errorf("get user by id: %w", err)
	}

	return user.Identity(), nil
}

// IssueCSRFToken mints a standalone CSRF token for the /csrf endpoint.
func (s *AuthService) IssueCSRFToken() (string, error) {
	return s.tokens.CreateCSRFToken()
}

func (s *AuthService) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }

// PurgeExpired runs the lazy ledger purge; cmd/server calls it periodically.
func (s *AuthService) PurgeExpired(ctx context.Context) {
	removed, err := s.ledger.DeleteExpiredRefreshTokens(ctx, time.Now())
	if err != nil {
		s.log.Errorw("purge expired refresh tokens", "error", err)
		return
	}
	if removed > 0 {
		s.log.Infow("purged expired refresh tokens", "count", removed)
	}
}

func (s *AuthService) finishSession(identity models.Identity, refreshToken string, refreshExpiresAt time.Time, now time.Time) (*Session, error) {
	accessToken, accessExpiresAt, err := s.tokens.CreateAccessToken(identity, now)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	csrfToken, err := s.tokens.CreateCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("create csrf token: %w", err)
	}

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
		CSRFToken:        csrfToken,
		User:             identity,
	}, nil
}

func (s *AuthService) handleReuse(ctx context.Context, record *models.RefreshTokenRecord, meta models.RequestMetadata) {
	obs.ReuseAlertsTotal.Inc()
	s.log.Warnw("revoked refresh token presented again",
		"jti", record.JTI, "user_id", record.UserID, "ip", meta.IPAddress)

	if err := s.ledger.RevokeAllUserRefreshTokens(ctx, record.UserID); err != nil {
		s.log.Errorw("revoke user refresh tokens after reuse", "error", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyTokenReuse(context.WithoutCancel(ctx), map[string]interface{}{
			"jti":        record.JTI,
			"user_id":    record.UserID,
			"ip":         meta.IPAddress,
			"user_agent": meta.UserAgent,
		})
	}
}
