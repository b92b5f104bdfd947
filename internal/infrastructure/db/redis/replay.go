package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayTTL = 24 * time.Hour

// ReplayGuard provides purchase idempotency checks backed by Redis.
// Key format: purchase:<idempotency_key>
type ReplayGuard struct {
	client *redis.Client
}

// NewReplayGuard creates a ReplayGuard wrapping the given Redis client.
func NewReplayGuard(client *redis.Client) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// Claim records the key with SET NX, so checking and marking is a single
// atomic operation: of any number of concurrent requests sharing a key,
// exactly one wins the claim. The key expires after replayTTL.
func (g *ReplayGuard) Claim(ctx context.Context, key string) (bool, error) {
	won, err := g.client.SetNX(ctx, g.key(key), "1", replayTTL).Result()
	if err != nil {
		return false, fmt.Errorf("replay claim: %w", err)
	}
	return won, nil
}

// Release drops a claimed key so the client can retry after a failure.
func (g *ReplayGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.key(key)).Err()
}

func (g *ReplayGuard) key(key string) string {
	return "purchase:" + key
}
