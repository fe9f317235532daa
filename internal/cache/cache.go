// Package cache memoises backend reads on the client side.
//
// Each cached query is identified by an operation name ("feed", "event",
// "registration", "my-events", "profile") and its parameters. The key is
//
//	cache:<op>:<sha1 of the JSON-encoded parameters>
//
// so every query of one operation shares a prefix and can be dropped at once.
//
// STALE WRITES:
// A fetch that started before an invalidation must not put its (now stale)
// result back afterwards. Every operation has a generation number that
// invalidation bumps; a fetch records the generation when it starts and only
// stores its result if the generation is unchanged when it finishes.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Operation names used by the client services.
const (
	OpFeed         = "feed"
	OpEvent        = "event"
	OpRegistration = "registration"
	OpMyEvents     = "my-events"
	OpProfile      = "profile"
)

const keyPrefix = "cache:"

// Store is where encoded results live. Get reports a miss as (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache is safe for concurrent use. Store failures never fail a query: they
// are logged and the query falls through to the backend.
//
// WHY KEY BY (operation, parameters)?
// A view asks for "the feed, search=jazz, page 2" or "is alice registered
// for e1". The operation name plus its exact parameters identify that answer,
// and nothing else does. Two views asking the same question share one entry;
// two different questions never collide.
//
// WHY INVALIDATE INSTEAD OF UPDATE?
// After a write the cache cannot know every answer the write changed. One
// registration moves the event's count, the user's status, every feed page
// that shows the event and both my-events lists. Dropping those entries
// (exactly, or the whole operation by prefix) and letting the next read
// refetch is always correct. Patching them in place would mean re-deriving
// the backend's logic on the client.
//
// WHY A Store INTERFACE?
// The same logic runs over an in-process map (MemoryStore, the default) and
// Redis (RedisStore, when several client processes should share what they
// have read). Tests run every case against both.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	// mu orders generation bumps against result stores.
	mu   sync.Mutex
	gens map[string]uint64
}

func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

// Key builds the cache key for op and params.
func Key(op string, params ...any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		// Parameters are IDs, strings and small structs; this does not happen.
		raw = []byte(fmt.Sprint(params...))
	}
	sum := sha1.Sum(raw)
	return keyPrefix + op + ":" + hex.EncodeToString(sum[:])
}

func opPrefix(op string) string {
	return keyPrefix + op + ":"
}

// Query returns the cached result for (op, params) or calls fetch and caches
// what it returns. Errors from fetch are returned and never cached.
func Query[T any](ctx context.Context, c *Cache, op string, params []any, fetch func(context.Context) (T, error)) (T, error) {
	key := Key(op, params...)

	if raw, ok := c.get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("cache: dropping undecodable entry", slog.String("key", key))
	}

	gen := c.generation(op)

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache: encoding result", slog.String("op", op), slog.String("error", err.Error()))
		return v, nil
	}
	c.storeIfCurrent(ctx, op, gen, key, raw)
	return v, nil
}

// Invalidate drops the single query (op, params).
func (c *Cache) Invalidate(ctx context.Context, op string, params ...any) {
	c.bump(op)
	if err := c.store.Delete(ctx, Key(op, params...)); err != nil {
		c.logger.Warn("cache: delete failed", slog.String("op", op), slog.String("error", err.Error()))
	}
}

// InvalidateOp drops every query of the given operations.
func (c *Cache) InvalidateOp(ctx context.Context, ops ...string) {
	for _, op := range ops {
		c.bump(op)
		if err := c.store.DeletePrefix(ctx, opPrefix(op)); err != nil {
			c.logger.Warn("cache: prefix delete failed", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache: get failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return raw, ok
}

func (c *Cache) generation(op string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[op]
}

func (c *Cache) bump(op string) {
	c.mu.Lock()
	c.gens[op]++
	c.mu.Unlock()
}

// storeIfCurrent writes while holding mu, so an invalidation either happens
// entirely before (and the write is skipped) or entirely after (and its
// delete removes the write).
func (c *Cache) storeIfCurrent(ctx context.Context, op string, gen uint64, key string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[op] != gen {
		c.logger.Debug("cache: discarding result of invalidated fetch", slog.String("op", op))
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache: set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
