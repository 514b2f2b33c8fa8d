package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "denylist:"

// Denylist blacklists access tokens in Redis until their natural expiry.
type Denylist struct {
	client *redis.Client
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

func (s *Denylist) DenyToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, denylistPrefix+token, "revoked", ttl).Err()
}

func (s *Denylist) IsTokenDenied(ctx context.Context, token string) (bool, error) {
	result, err := s.client.Get(ctx, denylistPrefix+token).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return result == "revoked", nil
}
