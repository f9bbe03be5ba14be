// Package cache implements the stale-while-revalidate read cache of the
// client core: typed entries over the device key-value store, each stamped
// with its write time so callers can judge staleness, plus broad
// pattern-based invalidation.
//
// The cache is non-authoritative. Every storage failure degrades to a miss
// (reads) or a dropped write (writes) and is logged, never returned: a broken
// cache must cost the UI a spinner, not a crash. Staleness is advisory; the
// cache never evicts on age because the UI always wants something to show.
//
// Physical layout under the store:
//
//	cache:{logicalKey}            JSON-encoded value
//	cache:{logicalKey}:writtenAt  unix milliseconds of the write
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Namespace prefixes every physical key owned by the cache.
	Namespace = "cache:"

	writtenAtSuffix = ":writtenAt"
)

// Store is the durable key-value store the cache is layered on.
// repo.KVStore satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
	AllKeys(ctx context.Context) ([]string, error)
}

// Entry is a cached value with its write time.
type Entry[T any] struct {
	Data      T
	WrittenAt time.Time
	// IsStale reports now - WrittenAt > maxAge at read time.
	IsStale bool
}

// Cache is safe for concurrent use as long as the underlying Store is.
type Cache struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "cache").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get reads key and reports its staleness against maxAge. It returns nil when
// the key is absent, the store cannot be read, or the stored value does not
// decode into T.
//
// A value whose timestamp is missing (a crash between the two writes of Set)
// is returned with WrittenAt at the Unix epoch, so it is always stale.
func Get[T any](ctx context.Context, c *Cache, key string, maxAge time.Duration) *Entry[T] {
	raw, ok, err := c.store.Get(ctx, physicalKey(key))
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		cacheReads.WithLabelValues("error").Inc()
		return nil
	}
	if !ok {
		cacheReads.WithLabelValues("miss").Inc()
		return nil
	}

	var data T
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable; treating as miss")
		cacheReads.WithLabelValues("error").Inc()
		return nil
	}

	// Without a readable timestamp the entry is stale whatever maxAge is.
	writtenAt, tsOK := time.UnixMilli(0), false
	if ts, ok, err := c.store.Get(ctx, timestampKey(key)); err == nil && ok {
		if ms, perr := strconv.ParseInt(ts, 10, 64); perr == nil {
			writtenAt, tsOK = time.UnixMilli(ms), true
		}
	}

	cacheReads.WithLabelValues("hit").Inc()
	return &Entry[T]{
		Data:      data,
		WrittenAt: writtenAt,
		IsStale:   !tsOK || c.now().Sub(writtenAt) > maxAge,
	}
}

// Set stores value under key together with the current time. Failures are
// logged and swallowed. The timestamp is only written after the value write
// succeeded.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		cacheWrites.WithLabelValues("error").Inc()
		return
	}
	if err := c.store.Set(ctx, physicalKey(key), string(b)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		cacheWrites.WithLabelValues("error").Inc()
		return
	}
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	if err := c.store.Set(ctx, timestampKey(key), ts); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache timestamp write failed")
		cacheWrites.WithLabelValues("error").Inc()
		return
	}
	cacheWrites.WithLabelValues("ok").Inc()
}

// Remove deletes key and its timestamp. Removing an absent key is a no-op.
func (c *Cache) Remove(ctx context.Context, key string) {
	if err := c.store.MultiRemove(ctx, []string{physicalKey(key), timestampKey(key)}); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache remove failed")
	}
}

// Invalidate removes every cached key whose logical name starts with or
// contains any of patterns, and returns how many physical keys it removed.
// Matching is deliberately broad so that a base key also drops all of its
// parameterized variants.
func (c *Cache) Invalidate(ctx context.Context, patterns ...string) int {
	if len(patterns) == 0 {
		return 0
	}
	keys, err := c.store.AllKeys(ctx)
	if err != nil {
		c.log.Warn().Err(err).Strs("patterns", patterns).Msg("cache invalidate: list keys failed")
		return 0
	}

	var doomed []string
	for _, k := range keys {
		logical, ok := strings.CutPrefix(k, Namespace)
		if !ok {
			continue
		}
		if matchesAny(logical, patterns) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	if err := c.store.MultiRemove(ctx, doomed); err != nil {
		c.log.Warn().Err(err).Strs("patterns", patterns).Msg("cache invalidate: remove failed")
		return 0
	}
	cacheInvalidated.Add(float64(len(doomed)))
	c.log.Debug().Strs("patterns", patterns).Int("keys", len(doomed)).Msg("cache invalidated")
	return len(doomed)
}

// ClearAll removes every key under the cache namespace.
func (c *Cache) ClearAll(ctx context.Context) {
	keys, err := c.store.AllKeys(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache clear: list keys failed")
		return
	}
	var doomed []string
	for _, k := range keys {
		if strings.HasPrefix(k, Namespace) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return
	}
	if err := c.store.MultiRemove(ctx, doomed); err != nil {
		c.log.Warn().Err(err).Msg("cache clear: remove failed")
		return
	}
	cacheInvalidated.Add(float64(len(doomed)))
	c.log.Info().Int("keys", len(doomed)).Msg("cache cleared")
}

func matchesAny(logical string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		// A prefix match is also a substring match.
		if strings.Contains(logical, p) {
			return true
		}
	}
	return false
}

func physicalKey(key string) string  { return Namespace + key }
func timestampKey(key string) string { return Namespace + key + writtenAtSuffix }
