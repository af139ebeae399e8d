package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

const (
	DefaultPrefix = "shop:"

	// Well-known keys used by the session provider and the sync layer.
	SessionKey = "session_id"
	CartKey    = "cart"

	probeKey = "__probe__"
)

var (
	ErrCacheMiss     = errors.New("cache miss")
	ErrQuotaExceeded = errors.New("cache quota exceeded")
)

// KeyValueCache is a best-effort store with per-entry expiry. No method returns
// an error: storage failures are logged and reported as a miss or false.
type KeyValueCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Get(ctx context.Context, key string, dest any) bool
	Remove(ctx context.Context, key string)
	Has(ctx context.Context, key string) bool
	Clear(ctx context.Context, keys ...string)
	Keys(ctx context.Context) []string
	Available(ctx context.Context) bool
}

// Medium is the raw byte store behind a Cache. Get returns ErrCacheMiss for an
// absent key. ttl is a hint; expiry is enforced by the Cache itself.
type Medium interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type entry struct {
	Value json.RawMessage `json:"value"`
	// ExpiresAt is unix milliseconds; nil never expires.
	ExpiresAt *int64 `json:"expires_at"`
}

func (e entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.UnixMilli() >= *e.ExpiresAt
}

type Cache struct {
	medium Medium
	prefix string
	clock  Clock
	log    *slog.Logger
}

type Option func(*Cache)

func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New wraps medium. A nil medium yields a cache where every operation is a no-op.
func New(medium Medium, opts ...Option) *Cache {
	c := &Cache{
		medium: medium,
		prefix: DefaultPrefix,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log).With("component", "cache")
	return c
}

var _ KeyValueCache = (*Cache)(nil)

// Set stores value under key. ttl <= 0 means the entry never expires.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if c.medium == nil {
		return false
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.log.WarnContext(ctx, "marshal cache value failed", "key", key, "error", err)
		return false
	}

	e := entry{Value: raw}
	if ttl > 0 {
		exp := c.clock.Now().Add(ttl).UnixMilli()
		e.ExpiresAt = &exp
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.log.WarnContext(ctx, "marshal cache entry failed", "key", key, "error", err)
		return false
	}

	if err := c.medium.Set(ctx, c.key(key), data, ttl); err != nil {
		c.log.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Get decodes the live entry for key into dest. It reports false on a miss, an
// expired entry, an undecodable entry or a medium failure.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	e, ok := c.load(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Value, dest); err != nil {
		c.log.WarnContext(ctx, "decode cache value failed", "key", key, "error", err)
		c.Remove(ctx, key)
		return false
	}
	return true
}

// GetOr returns the cached value for key, or def when there is none.
func GetOr[T any](ctx context.Context, c KeyValueCache, key string, def T) T {
	var v T
	if c == nil || !c.Get(ctx, key, &v) {
		return def
	}
	return v
}

func (c *Cache) Has(ctx context.Context, key string) bool {
	_, ok := c.load(ctx, key)
	return ok
}

func (c *Cache) Remove(ctx context.Context, key string) {
	if c.medium == nil {
		return
	}
	if err := c.medium.Delete(ctx, c.key(key)); err != nil {
		c.log.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
	}
}

// Clear removes the given keys, or every key under the prefix when none are given.
func (c *Cache) Clear(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		keys = c.Keys(ctx)
	}
	for _, k := range keys {
		c.Remove(ctx, k)
	}
}

// Keys lists stored keys with the prefix stripped.
func (c *Cache) Keys(ctx context.Context) []string {
	if c.medium == nil {
		return nil
	}
	full, err := c.medium.Keys(ctx, c.prefix)
	if err != nil {
		c.log.WarnContext(ctx, "cache key listing failed", "error", err)
		return nil
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		if k == c.key(probeKey) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(k, c.prefix))
	}
	return keys
}

// Available reports whether the medium accepts a write right now.
func (c *Cache) Available(ctx context.Context) bool {
	if c.medium == nil {
		return false
	}
	k := c.key(probeKey)
	if err := c.medium.Set(ctx, k, []byte("1"), time.Second); err != nil {
		return false
	}
	_ = c.medium.Delete(ctx, k)
	return true
}

func (c *Cache) load(ctx context.Context, key string) (entry, bool) {
	if c.medium == nil {
		return entry{}, false
	}

	data, err := c.medium.Get(ctx, c.key(key))
	if errors.Is(err, ErrCacheMiss) {
		return entry{}, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.log.WarnContext(ctx, "corrupt cache entry dropped", "key", key, "error", err)
		c.Remove(ctx, key)
		return entry{}, false
	}
	if e.expired(c.clock.Now()) {
		c.Remove(ctx, key)
		return entry{}, false
	}
	return e, true
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}
