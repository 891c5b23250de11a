package cache

import (
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Default policy values.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultDegraded   = 5 * time.Minute
	DefaultMaxEntries = 10000
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("invalid cache config")

const keySep = "|"

// Key identifies one cached value.
type Key struct {
	Purpose string
	UserID  string
	DateKey string
}

// String renders the key in its storage form.
func (k Key) String() string {
	return k.Purpose + keySep + k.UserID + keySep + k.DateKey
}

func (k Key) dayKey() string {
	return keySep + k.UserID + keySep + k.DateKey
}

// Config controls TTL policy and capacity.
type Config struct {
	DefaultTTL  time.Duration
	DegradedTTL time.Duration
	MaxEntries  int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a bounded TTL cache of byte values. It is safe for concurrent use.
type Cache struct {
	cfg     Config
	entries *lru.Cache[string, entry]
	group   singleflight.Group
	now     func() time.Time
	metrics *Metrics
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache. Zero values in cfg take the package defaults.
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.DegradedTTL == 0 {
		cfg.DegradedTTL = DefaultDegraded
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL < 0 || cfg.DegradedTTL < 0 || cfg.MaxEntries < 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.DegradedTTL > cfg.DefaultTTL {
		return nil, ErrInvalidConfig
	}

	entries, err := lru.New[string, entry](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}

	c := &Cache{cfg: cfg, entries: entries, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime for a value, shortened when the value was built
// from fallbacks so a retry happens sooner.
func (c *Cache) TTL(degraded bool) time.Duration {
	if degraded {
		return c.cfg.DegradedTTL
	}
	return c.cfg.DefaultTTL
}

// Get returns a copy of the value stored under key, or false when absent or
// expired.
func (c *Cache) Get(key Key) ([]byte, bool) {
	k := key.String()
	e, ok := c.entries.Get(k)
	if ok && !c.now().Before(e.expiresAt) {
		c.entries.Remove(k)
		c.setSize()
		ok = false
	}
	if !ok {
		c.metrics.miss(key.Purpose)
		return nil, false
	}
	c.metrics.hit(key.Purpose)
	return clone(e.value), true
}

// Set stores a copy of value under key for ttl. A non-positive ttl deletes
// the key.
func (c *Cache) Set(key Key, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(key)
		return
	}
	c.put(key.String(), entry{value: clone(value), expiresAt: c.now().Add(ttl)})
}

// Share makes to point at the value stored under from, keeping from's
// expiry. It reports false when from is absent or expired.
func (c *Cache) Share(from, to Key) bool {
	e, ok := c.entries.Peek(from.String())
	if !ok || !c.now().Before(e.expiresAt) {
		return false
	}
	c.put(to.String(), e)
	return true
}

func (c *Cache) put(k string, e entry) {
	if evicted := c.entries.Add(k, e); evicted {
		c.metrics.evict()
	}
	c.setSize()
}

// Invalidate removes key.
func (c *Cache) Invalidate(key Key) {
	c.entries.Remove(key.String())
	c.setSize()
}

// InvalidateDay removes every purpose cached for the user and date.
func (c *Cache) InvalidateDay(userID, dateKey string) int {
	suffix := Key{UserID: userID, DateKey: dateKey}.dayKey()
	removed := 0
	for _, k := range c.entries.Keys() {
		if strings.HasSuffix(k, suffix) && c.entries.Remove(k) {
			removed++
		}
	}
	c.setSize()
	return removed
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Do runs fn once for concurrent callers sharing flight. Callers that joined
// an in-progress call get its result and shared=true.
func (c *Cache) Do(flight string, fn func() ([]byte, error)) (value []byte, shared bool, err error) {
	v, err, shared := c.group.Do(flight, func() (any, error) {
		return fn()
	})
	if shared {
		c.metrics.share()
	}
	if err != nil {
		return nil, shared, err
	}
	b, _ := v.([]byte)
	return clone(b), shared, nil
}

func (c *Cache) setSize() {
	c.metrics.size(c.entries.Len())
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
