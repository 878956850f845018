package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContextCacheRepo caches aggregated tenant context summaries in Redis.
// The aggregator is read-only and re-runnable, so cache failures are never
// fatal; callers treat misses and errors identically and fall through to
// the database.
type ContextCacheRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewContextCacheRepo creates a new ContextCacheRepo with the given client and TTL.
func NewContextCacheRepo(client redis.UniversalClient, ttl time.Duration) *ContextCacheRepo {
	return &ContextCacheRepo{client: client, ttl: ttl}
}

func (r *ContextCacheRepo) key(tenantID, scope string) string {
	return fmt.Sprintf("agent:context:%s:%s", tenantID, scope)
}

// Get returns the cached summary for a tenant/scope pair, or ok=false on miss.
func (r *ContextCacheRepo) Get(ctx context.Context, tenantID, scope string) (string, bool, error) {
	if r.client == nil {
		return "", false, nil
	}

	val, err := r.client.Get(ctx, r.key(tenantID, scope)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached context: %w", err)
	}
	return val, true, nil
}

// Set stores a summary for a tenant/scope pair with the configured TTL.
func (r *ContextCacheRepo) Set(ctx context.Context, tenantID, scope, summary string) error {
	if r.client == nil {
		return nil
	}

	if err := r.client.Set(ctx, r.key(tenantID, scope), summary, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cached context: %w", err)
	}
	return nil
}
