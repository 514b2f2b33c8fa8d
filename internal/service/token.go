package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/util"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenMalformed       = errors.New("token is malformed")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

// TokenService mints and verifies the three token kinds: signed access
// tokens, signed refresh tokens carrying a jti, and random CSRF tokens.
// It is stateless; the refresh-token ledger lives in storage.
type TokenService struct {
	jwtSecretKey []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewTokenService(cfg *util.TokenConfig) *TokenService {
	return &TokenService{
		jwtSecretKey: cfg.JwtSecretKey,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
	}
}

type AccessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

func (ts *TokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// CreateAccessToken signs a short-lived HS512 access token for the identity.
func (ts *TokenService) CreateAccessToken(identity models.Identity, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ts.accessTTL)
	claims := &AccessClaims{
		Username: identity.Username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.jwtSecretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signed string: %w", err)
	}

	return signedToken, expiresAt, nil
}

// CreateRefreshToken signs a long-lived token with a fresh random jti. The
// caller must persist the matching ledger record before handing it out.
func (ts *TokenService) CreateRefreshToken(userID int64, now time.Time) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	expiresAt = now.Add(ts.refreshTTL)

	claims := &refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(ts.jwtSecretKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("signed string: %w", err)
	}

	return signedToken, jti, expiresAt, nil
}

// CreateCSRFToken returns a cryptographically random value. It is never
// persisted; the double-submit check is pure equality.
func (ts *TokenService) CreateCSRFToken() (string, error) {
	raw := make([]byte, util.CSRFTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (ts *TokenService) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(util.JWTLeeWay),
		jwt.WithExpirationRequired(),
	}
}

func (ts *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
		return nil, ErrInvalidSigningMethod
	}
	return ts.jwtSecretKey, nil
}

// ParseAccessToken verifies signature and expiry and returns the claim set.
func (ts *TokenService) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, ts.keyFunc, ts.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if parsedToken == nil || !parsedToken.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ParseRefreshToken verifies the refresh token and returns its jti and owner.
// Malformed or expired tokens fail here and never reach the ledger.
func (ts *TokenService) ParseRefreshToken(token string) (jti string, userID int64, err error) {
	claims := &refreshClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, ts.keyFunc, ts.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", 0, ErrTokenExpired
		}
		return "", 0, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if parsedToken == nil || !parsedToken.Valid || claims.ID == "" {
		return "", 0, ErrTokenInvalid
	}

	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	return claims.ID, userID, nil
}

// RemainingAccessTTL reports how long an access token stays valid, without
// verifying the signature. Used to bound denylist entries at logout.
func (ts *TokenService) RemainingAccessTTL(token string, now time.Time) (time.Duration, error) {
	claims := &AccessClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return 0, ErrTokenMalformed
	}
	return claims.ExpiresAt.Time.Sub(now), nil
}
