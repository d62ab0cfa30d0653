package lock

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Leaser hands out short-lived exclusive leases keyed by string. Backed by
// redis SETNX when a client is available; falls back to an in-process cache
// otherwise (single-instance deployments).
type Leaser struct {
	rdb   *redis.Client
	local *cache.Cache
}

func NewLeaser(rdb *redis.Client) *Leaser {
	return &Leaser{
		rdb:   rdb,
		local: cache.New(5*time.Minute, 1*time.Minute),
	}
}

// Acquire returns true when the caller now holds the lease.
func (l *Leaser) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.rdb != nil {
		ok, err := l.rdb.SetNX(ctx, "lease:"+key, 1, ttl).Result()
		if err == nil {
			return ok, nil
		}
		// Redis unreachable: degrade to the local guard rather than
		// blocking the pipeline.
	}
	return l.local.Add(key, struct{}{}, ttl) == nil, nil
}

func (l *Leaser) Release(ctx context.Context, key string) {
	if l.rdb != nil {
		l.rdb.Del(ctx, "lease:"+key)
	}
	l.local.Delete(key)
}
