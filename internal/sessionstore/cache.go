// Package sessionstore owns session persistence: a write-through cache in
// front of the relational repository, so a hot session round-trips through
// Redis (or, absent Redis, an in-process map) instead of hitting the
// database on every move.
package sessionstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessica/backend/internal/domain"
)

// Cache is the narrow interface Repository depends on; both
// implementations below satisfy it so a deployment without Redis degrades
// instead of failing to boot.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, bool)
	Set(ctx context.Context, rec *domain.SessionRecord)
	Invalidate(ctx context.Context, sessionID string)
}

// NewCache builds a Redis-backed cache when redisURL is set and reachable,
// falling back to an in-memory cache otherwise — the same fallback
// behavior the original SessionCache gave the Python service.
func NewCache(redisURL string, ttl time.Duration) Cache {
	if redisURL == "" {
		return newMemoryCache(ttl)
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("sessionstore: invalid redis_url, falling back to in-memory cache", "error", err)
		return newMemoryCache(ttl)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("sessionstore: redis unreachable, falling back to in-memory cache", "error", err)
		return newMemoryCache(ttl)
	}
	return &redisCache{client: client, ttl: ttl, prefix: "session:"}
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func (c *redisCache) key(id string) string { return c.prefix + id }

func (c *redisCache) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, bool) {
	raw, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err != nil {
		return nil, false
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (c *redisCache) Set(ctx context.Context, rec *domain.SessionRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(rec.ID), raw, c.ttl)
}

func (c *redisCache) Invalidate(ctx context.Context, sessionID string) {
	c.client.Del(ctx, c.key(sessionID))
}

type memoryEntry struct {
	rec       *domain.SessionRecord
	expiresAt time.Time
}

type memoryCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]memoryEntry
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{ttl: ttl, data: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, sessionID string) (*domain.SessionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.data, sessionID)
		return nil, false
	}
	return e.rec, true
}

func (c *memoryCache) Set(_ context.Context, rec *domain.SessionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[rec.ID] = memoryEntry{rec: rec, expiresAt: time.Now().Add(c.ttl)}
}

func (c *memoryCache) Invalidate(_ context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, sessionID)
}
