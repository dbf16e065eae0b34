package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which alert keys fired recently.
type Deduper interface {
	// Seen records key for ttl and reports whether it was already recorded
	// inside the window.
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryDeduper keeps the dedup window in process memory. State is lost on
// restart, which at worst repeats an alert once.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryDeduper creates an in-process Deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen implements Deduper.
func (d *MemoryDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[key]; ok && now.Sub(at) < ttl {
		return true, nil
	}
	d.seen[key] = now
	return false, nil
}

// Cleanup drops entries older than maxAge so long-running processes do not
// grow the map without bound.
func (d *MemoryDeduper) Cleanup(maxAge time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-maxAge)
	for key, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, key)
		}
	}
}

// RedisDeduper shares the dedup window across bot instances through Redis
// SETNX with a TTL. The key either did not exist (claim it, not seen) or
// it did (seen).
type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisDeduper creates a Deduper over an existing Redis client.
func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{
		rdb:    rdb,
		prefix: "alert:",
	}
}

// Seen implements Deduper.
func (d *RedisDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := d.rdb.SetNX(ctx, d.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: dedup %s: %w", key, err)
	}
	return !claimed, nil
}

// Compile-time interface checks.
var (
	_ Deduper = (*MemoryDeduper)(nil)
	_ Deduper = (*RedisDeduper)(nil)
)
