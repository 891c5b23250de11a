// Package cache memoizes computed decisions for a short window so every
// consumer of a user's day sees the same bytes.
//
// Entries are keyed by (purpose, user, date) and carry their own expiry.
// Capacity is bounded by an LRU; concurrent computations for the same key
// collapse into one call through Do.
//
//	c, _ := cache.New(cache.Config{DefaultTTL: 24 * time.Hour, DegradedTTL: 5 * time.Minute, MaxEntries: 10000})
//	c.Set(key, body, c.TTL(decision.Degraded))
//	body, ok := c.Get(key)
package cache
