package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/culturequiz/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Store counts hits per key within a fixed window. Increment returns the
// count including this hit.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter allows up to limit hits per key per window.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
	log    *logger.Logger
}

func NewLimiter(store Store, limit int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{store: store, limit: int64(limit), window: window, log: log}
}

// Allow reports whether key may proceed. A store failure lets the request
// through and is logged.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}
	n, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		l.log.Warn("rate limit store unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return n <= l.limit
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// ── In-process store ────────────────────────────────────

type bucket struct {
	count   int64
	expires time.Time
}

// MemoryStore keeps windows in a map. Expired entries are dropped by Sweep,
// which the owner calls directly or through RunSweeper.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: map[string]*bucket{}, now: time.Now}
}

func (m *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.expires) {
		b = &bucket{expires: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

// Sweep removes every window that expired at or before now and returns how
// many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, b := range m.buckets {
		if !now.Before(b.expires) {
			delete(m.buckets, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// DefaultSweepInterval replaces a non-positive RunSweeper interval.
const DefaultSweepInterval = time.Minute

// RunSweeper sweeps every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// ── Redis store ─────────────────────────────────────────

// RedisStore shares windows across instances. Keys expire in Redis, so no
// sweep is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func (r *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.prefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	// Only a key without expiry gets one, so the window stays anchored to
	// its first hit. EXPIRE NX would do this in one call but needs Redis 7.
	if needsExpiry(ttl.Val()) {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire: %w", err)
		}
	}
	return incr.Val(), nil
}

// needsExpiry reports whether a TTL reply means the key has no expiry set.
func needsExpiry(ttl time.Duration) bool {
	return ttl < 0
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
