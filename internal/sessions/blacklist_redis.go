package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "courrier:blacklist:access:"

// Blacklist records revoked access tokens until they would have expired. A
// Blacklist without a Redis client accepts every token.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(c *redis.Client) *Blacklist { return &Blacklist{client: c} }

// Add revokes token for ttl. It is a no-op without Redis or for a non-positive ttl.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsBlacklisted reports whether token was revoked.
func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
