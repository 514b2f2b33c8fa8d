package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage/memory"
	"github.com/ostrovsky/estate-cms/internal/util"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (f *fakeNotifier) NotifyTokenReuse(_ context.Context, data map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, data)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeDenylist struct {
	mu     sync.Mutex
	denied map[string]bool
}

func (f *fakeDenylist) DenyToken(_ context.Context, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied == nil {
		f.denied = make(map[string]bool)
	}
	f.denied[token] = true
	return nil
}

func (f *fakeDenylist) IsTokenDenied(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.denied[token], nil
}

var testMeta = models.RequestMetadata{IPAddress: "203.0.113.7", UserAgent: "go-test"}

func newTestAuth(t *testing.T) (*AuthService, *memory.Store, *fakeNotifier) {
	t.Helper()

	store := memory.NewStore()
	hash, err := HashSecret("password123")
	require.NoError(t, err)
	_, err = store.UpsertUser(context.Background(), "admin", hash, models.RoleAdmin)
	require.NoError(t, err)

	tokens := NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
	})
	notifier := &fakeNotifier{}
	auth := NewAuthService(tokens, store, store, nil, notifier, zap.NewNop().Sugar())
	return auth, store, notifier
}

func TestLogin(t *testing.T) {
	auth, store, _ := newTestAuth(t)
	ctx := context.Background()

	session, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.NotEmpty(t, session.CSRFToken)
	assert.Equal(t, "admin", session.User.Username)

	records := store.Records(session.User.ID)
	require.Len(t, records, 1)
	assert.False(t, records[0].Revoked)
	assert.Equal(t, testMeta.IPAddress, records[0].IPAddress)
}

func TestLoginNormalizesUsername(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	session, err := auth.Login(context.Background(), "  Admin ", "password123", testMeta)
	require.NoError(t, err)
	assert.Equal(t, "admin", session.User.Username)
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "ghost", "password123"},
		{"empty password", "admin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(ctx, tt.username, tt.password, testMeta)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRefreshRotates(t *testing.T) {
	auth, store, _ := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	second, err := auth.Refresh(ctx, first.RefreshToken, testMeta)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEmpty(t, second.AccessToken)

	records := store.Records(first.User.ID)
	require.Len(t, records, 2)

	var revoked, active int
	for _, r := range records {
		if r.Revoked {
			revoked++
		} else {
			active++
		}
	}
	assert.Equal(t, 1, revoked)
	assert.Equal(t, 1, active)
}

func TestRefreshEmptyToken(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Refresh(context.Background(), "", testMeta)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRefreshGarbageToken(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.Refresh(context.Background(), "not.a.token", testMeta)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRefreshUnknownLedgerEntry(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	// a well-signed token whose jti was never persisted
	token, _, _, err := auth.tokens.CreateRefreshToken(1, time.Now())
	require.NoError(t, err)

	_, err = auth.Refresh(ctx, token, testMeta)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshDeletedUser(t *testing.T) {
	auth, store, _ := newTestAuth(t)
	ctx := context.Background()

	now := time.Now()
	token, jti, expiresAt, err := auth.tokens.CreateRefreshToken(999, now)
	require.NoError(t, err)
	_, err = store.CreateRefreshToken(ctx, models.RefreshTokenRecord{
		JTI: jti, UserID: 999, CreatedAt: now, ExpiresAt: expiresAt,
	})
	require.NoError(t, err)

	_, err = auth.Refresh(ctx, token, testMeta)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshReuseRevokesChain(t *testing.T) {
	auth, store, notifier := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	second, err := auth.Refresh(ctx, first.RefreshToken, testMeta)
	require.NoError(t, err)

	// replaying the already-rotated token is reuse: the whole chain dies
	_, err = auth.Refresh(ctx, first.RefreshToken, testMeta)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	assert.Equal(t, 1, notifier.count())

	for _, r := range store.Records(first.User.ID) {
		assert.True(t, r.Revoked, "jti %s should be revoked", r.JTI)
	}

	// the successor issued before the reuse is dead too
	_, err = auth.Refresh(ctx, second.RefreshToken, testMeta)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	session, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.Refresh(ctx, session.RefreshToken, testMeta)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, ErrSessionRevoked)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, losses)
}

func TestLogoutRevokesAll(t *testing.T) {
	auth, store, _ := newTestAuth(t)
	ctx := context.Background()

	one, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)
	two, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	auth.Logout(ctx, one.RefreshToken, one.AccessToken)

	for _, r := range store.Records(one.User.ID) {
		assert.True(t, r.Revoked)
	}

	_, err = auth.Refresh(ctx, two.RefreshToken, testMeta)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestLogoutNeverFails(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	// garbage and empty tokens must be swallowed
	auth.Logout(ctx, "garbage", "also garbage")
	auth.Logout(ctx, "", "")
}

func TestAuthenticate(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	session, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	identity, err := auth.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User, identity)
}

func TestAuthenticateRejects(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expiredToken, _, err := auth.tokens.CreateAccessToken(models.Identity{ID: 1, Username: "admin"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, expiredToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// well-signed token for a user row that no longer exists
	ghostToken, _, err := auth.tokens.CreateAccessToken(models.Identity{ID: 404, Username: "ghost"}, time.Now())
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, ghostToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticateDenylisted(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	auth.denylist = &fakeDenylist{}
	ctx := context.Background()

	session, err := auth.Login(ctx, "admin", "password123", testMeta)
	require.NoError(t, err)

	auth.Logout(ctx, session.RefreshToken, session.AccessToken)

	_, err = auth.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
