package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, cfg Config) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	c, err := New(cfg, WithClock(clock.Now), WithMetrics(NewMetrics()))
	require.NoError(t, err)
	return c, clock
}

var key = Key{Purpose: "dashboard", UserID: "u1", DateKey: "2026-03-10"}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{DefaultTTL: time.Minute, DegradedTTL: time.Hour})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{DefaultTTL: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.TTL(false))
	assert.Equal(t, DefaultDegraded, c.TTL(true))
}

func TestCache_RoundTripWithinTTL(t *testing.T) {
	c, clock := newTestCache(t, Config{})

	c.Set(key, []byte(`{"a":1}`), time.Hour)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), got)

	clock.Advance(59 * time.Minute)
	again, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, got, again)

	clock.Advance(time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ValuesAreCopied(t *testing.T) {
	c, _ := newTestCache(t, Config{})

	in := []byte("abc")
	c.Set(key, in, time.Hour)
	in[0] = 'x'

	out, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))

	out[1] = 'y'
	again, _ := c.Get(key)
	assert.Equal(t, "abc", string(again))
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	c.Set(key, []byte("v"), time.Hour)
	c.Invalidate(key)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCache_SetNonPositiveTTLDeletes(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	c.Set(key, []byte("v"), time.Hour)
	c.Set(key, []byte("w"), 0)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCache_InvalidateDay(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	other := Key{Purpose: "nutrition", UserID: "u1", DateKey: "2026-03-10"}
	tomorrow := Key{Purpose: "dashboard", UserID: "u1", DateKey: "2026-03-11"}
	otherUser := Key{Purpose: "dashboard", UserID: "u2", DateKey: "2026-03-10"}
	for _, k := range []Key{key, other, tomorrow, otherUser} {
		c.Set(k, []byte(k.String()), time.Hour)
	}

	assert.Equal(t, 2, c.InvalidateDay("u1", "2026-03-10"))

	_, ok := c.Get(key)
	assert.False(t, ok)
	_, ok = c.Get(other)
	assert.False(t, ok)
	_, ok = c.Get(tomorrow)
	assert.True(t, ok)
	_, ok = c.Get(otherUser)
	assert.True(t, ok)
}

func TestCache_ShareKeepsExpiry(t *testing.T) {
	c, clock := newTestCache(t, Config{})
	shared := Key{Purpose: "decision", UserID: "u1", DateKey: "2026-03-10"}
	c.Set(shared, []byte("decision"), time.Hour)

	clock.Advance(30 * time.Minute)
	require.True(t, c.Share(shared, key))

	a, _ := c.Get(shared)
	b, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, a, b)

	clock.Advance(30 * time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok, "shared entry expires with its source")

	assert.False(t, c.Share(shared, key))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, Config{MaxEntries: 2})
	a := Key{Purpose: "p", UserID: "a", DateKey: "d"}
	b := Key{Purpose: "p", UserID: "b", DateKey: "d"}
	d := Key{Purpose: "p", UserID: "c", DateKey: "d"}

	c.Set(a, []byte("a"), time.Hour)
	c.Set(b, []byte("b"), time.Hour)
	_, _ = c.Get(a)
	c.Set(d, []byte("c"), time.Hour)

	_, ok := c.Get(b)
	assert.False(t, ok)
	_, ok = c.Get(a)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_DoCollapsesConcurrentCalls(t *testing.T) {
	c, _ := newTestCache(t, Config{})

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("computed"), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([][]byte, callers)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, _, err := c.Do("u1|2026-03-10", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "computed", string(r))
	}
}

func TestCache_DoPropagatesError(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	boom := errors.New("boom")

	v, _, err := c.Do("k", func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, v)
}

func TestCache_NilMetrics(t *testing.T) {
	c, err := New(Config{MaxEntries: 1})
	require.NoError(t, err)

	c.Set(key, []byte("v"), time.Minute)
	c.Set(Key{Purpose: "x"}, []byte("w"), time.Minute)
	_, ok := c.Get(key)
	assert.False(t, ok)
}
