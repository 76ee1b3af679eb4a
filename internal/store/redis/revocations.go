// Package redis keeps the token revocation list in Redis so logouts survive
// restarts and are shared between replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mwas-backend/internal/store"
)

type Revocations struct {
	client *redis.Client
	now    func() time.Time
}

var _ store.Revocations = (*Revocations)(nil)

func NewRevocations(redisURL string) (*Revocations, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Revocations{client: client, now: time.Now}, nil
}

func (r *Revocations) Close() error {
	return r.client.Close()
}

func key(jti string) string {
	return fmt.Sprintf("revoked_token:%s", jti)
}

// Revoke stores jti until the token's own expiry; Redis drops it afterwards.
func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
