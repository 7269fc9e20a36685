// Package mapcache provides a TTL-cached view of a JSON object parameter,
// loaded from a paramstore.Store and served as a string→string map.
package mapcache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/paramstore"
)

// DefaultTTL is how long a successfully loaded mapping is served without
// another store read.
const DefaultTTL = 5 * time.Minute

// snapshot pairs the mapping with its expiry so readers can never observe
// data from one refresh combined with the expiry of another.
type snapshot struct {
	data      map[string]string
	expiresAt time.Time
}

// Cache lazily loads a JSON object parameter and caches it for a TTL.
//
// Get never fails the caller: if a refresh fails (store error, parse error),
// the last successfully loaded mapping is returned unchanged and the expiry
// is left as-is, so the next call attempts another refresh instead of
// waiting out the TTL. A transient store outage therefore degrades to stale
// data rather than denying everyone.
type Cache struct {
	store paramstore.Store
	path  string
	ttl   time.Duration
	log   logrus.FieldLogger
	now   func() time.Time

	snap atomic.Pointer[snapshot]
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the refresh interval.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for refresh failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache over the JSON object parameter at path.
func New(store paramstore.Store, path string, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		path:  path,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) logger() logrus.FieldLogger {
	if c.log != nil {
		return c.log
	}
	return logrus.StandardLogger()
}

// Get returns the current mapping, refreshing it from the store when the
// cached copy is empty or expired. The returned map must not be mutated.
func (c *Cache) Get(ctx context.Context) map[string]string {
	now := c.now()
	if s := c.snap.Load(); s != nil && len(s.data) > 0 && now.Before(s.expiresAt) {
		return s.data
	}

	raw, err := c.store.GetParameter(ctx, c.path)
	if err != nil {
		c.logger().WithError(err).WithField("path", c.path).Warn("mapping refresh failed, serving cached data")
		return c.lastGood()
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.logger().WithError(err).WithField("path", c.path).Warn("mapping parameter is not a JSON object, serving cached data")
		return c.lastGood()
	}

	c.snap.Store(&snapshot{data: data, expiresAt: now.Add(c.ttl)})
	return data
}

// Lookup returns the value mapped to key, refreshing the mapping if needed.
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool) {
	v, ok := c.Get(ctx)[key]
	return v, ok
}

func (c *Cache) lastGood() map[string]string {
	if s := c.snap.Load(); s != nil {
		return s.data
	}
	return map[string]string{}
}
