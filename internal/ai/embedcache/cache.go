// Package embedcache memoizes embedding vectors in memory with an optional
// Redis tier shared between processes.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/logger"
)

const (
	defaultTTL        = 24 * time.Hour
	defaultMaxEntries = 4096
)

// Options configures the cache tiers.
type Options struct {
	// Namespace separates keys of different embedding models.
	Namespace  string
	Redis      *redis.Client
	TTL        time.Duration
	MaxEntries int
}

// Cache wraps an ai.Embedder. Failed embeddings are never cached.
type Cache struct {
	next       ai.Embedder
	namespace  string
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger

	l1      sync.Map // key -> *entry
	entries atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

type entry struct {
	vector    []float32
	expiresAt time.Time
}

func New(next ai.Embedder, opts Options, log *zap.Logger) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Cache{
		next:       next,
		namespace:  opts.Namespace,
		rdb:        opts.Redis,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger.OrNop(log),
	}
}

// Key builds a deterministic cache key for a text and mode.
func Key(namespace, text string, mode ai.EmbedMode) string {
	hash := sha256.Sum256([]byte(namespace + "|" + string(mode) + "|" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}

func (c *Cache) Embed(ctx context.Context, text string, mode ai.EmbedMode) ([]float32, error) {
	key := Key(c.namespace, text, mode)

	if vec, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.next.Embed(ctx, text, mode)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, vec)
	return vec, nil
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(ctx context.Context, key string) ([]float32, bool) {
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if time.Now().Before(e.expiresAt) {
			return e.vector, true
		}
		if _, loaded := c.l1.LoadAndDelete(key); loaded {
			c.entries.Add(-1)
		}
	}

	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("embedding cache: L2 get failed", zap.Error(err))
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}

	c.storeL1(key, vec)
	return vec, true
}

func (c *Cache) set(ctx context.Context, key string, vec []float32) {
	c.storeL1(key, vec)

	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("embedding cache: L2 set failed", zap.Error(err))
	}
}

func (c *Cache) storeL1(key string, vec []float32) {
	c.evictIfNeeded()
	if _, loaded := c.l1.Swap(key, &entry{vector: vec, expiresAt: time.Now().Add(c.ttl)}); !loaded {
		c.entries.Add(1)
	}
}

// evictIfNeeded drops expired entries and, if the cache is still full, an arbitrary one.
func (c *Cache) evictIfNeeded() {
	if c.entries.Load() < int64(c.maxEntries) {
		return
	}

	now := time.Now()
	var victim any
	c.l1.Range(func(k, v any) bool {
		if now.After(v.(*entry).expiresAt) {
			if _, loaded := c.l1.LoadAndDelete(k); loaded {
				c.entries.Add(-1)
			}
			return true
		}
		if victim == nil {
			victim = k
		}
		return true
	})

	if c.entries.Load() >= int64(c.maxEntries) && victim != nil {
		if _, loaded := c.l1.LoadAndDelete(victim); loaded {
			c.entries.Add(-1)
		}
	}
}
