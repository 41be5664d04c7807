// Package loadercache stores route loader results keyed by match key.
//
// An entry is fresh while younger than its MaxAge. Fresh hits skip the
// loader. Stale entries force a blocking reload unless the caller opts into
// stale-while-revalidate. Concurrent loads of one key share a single call,
// which is cancelled only once every caller waiting on it has gone.
package loadercache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultMaxEntries bounds the cache before LRU eviction.
	DefaultMaxEntries = 1000

	// DefaultGCTime is how long an expired entry is kept before GC drops it.
	DefaultGCTime = 30 * time.Minute
)

// AlwaysStale is a MaxAge that makes every entry stale as soon as it is
// written.
const AlwaysStale time.Duration = -1

// NeverExpires is a MaxAge that keeps an entry fresh until it is
// invalidated or evicted.
const NeverExpires time.Duration = math.MaxInt64

// Hooks receive cache events. Any field may be nil.
type Hooks struct {
	OnHit   func(key string)
	OnMiss  func(key string)
	OnStale func(key string)
	OnEvict func(key string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries sets the LRU bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithGCTime sets how long expired entries survive before GC removes them.
func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHooks installs event hooks.
func WithHooks(h Hooks) Option {
	return func(c *Cache) {
		c.hooks = h
	}
}

// =============================================================================
// Entry
// =============================================================================

// Entry is one cached loader result.
type Entry struct {
	Key     string
	RouteID string

	// Data is the loader output.
	Data any

	// Context is the match's own context contribution.
	Context map[string]any

	UpdatedAt time.Time

	// MaxAge is how long the entry stays fresh. Zero or a negative value is
	// stale immediately; NeverExpires never goes stale.
	MaxAge time.Duration

	// Preload marks entries written by a preload that no navigation has
	// committed yet.
	Preload bool

	// Invalid marks entries dropped by Invalidate. They are never fresh.
	Invalid bool
}

// Fresh reports whether the entry can be served without reloading.
func (e *Entry) Fresh(now time.Time) bool {
	if e == nil || e.Invalid || e.MaxAge <= 0 {
		return false
	}
	if e.MaxAge == NeverExpires {
		return true
	}
	return now.Sub(e.UpdatedAt) < e.MaxAge
}

// Age returns how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.UpdatedAt)
}

func (e *Entry) clone() *Entry {
	cp := *e
	return &cp
}

// =============================================================================
// Cache
// =============================================================================

// Outcome says how Load produced its entry.
type Outcome int

const (
	// Miss means the loader ran.
	Miss Outcome = iota
	// Hit means a fresh entry was returned.
	Hit
	// Stale means a stale entry was returned and a refresh started.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Policy controls one Load call.
type Policy struct {
	// MaxAge is stamped onto the entry the loader produces.
	MaxAge time.Duration

	// StaleWhileRevalidate returns a stale entry immediately and reloads
	// in the background.
	StaleWhileRevalidate bool

	// Preload marks the produced entry as preloaded.
	Preload bool

	// Force skips the freshness check and always runs the loader, joining
	// a load already in flight.
	Force bool
}

// LoadFunc produces the entry for a key. Only Data and Context are read
// from the returned entry; the cache fills in the rest. An error is not
// cached.
type LoadFunc func(ctx context.Context) (*Entry, error)

// Cache is a bounded, concurrency-safe loader cache.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *Entry]
	flights    singleflight.Group
	inflight   map[string]*flight
	maxEntries int
	gcTime     time.Duration
	now        func() time.Time
	hooks      Hooks
}

// New creates a cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxEntries: DefaultMaxEntries,
		gcTime:     DefaultGCTime,
		now:        time.Now,
		inflight:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.NewWithEvict[string, *Entry](c.maxEntries, func(key string, _ *Entry) {
		if c.hooks.OnEvict != nil {
			c.hooks.OnEvict(key)
		}
	})
	if err != nil {
		// Only returned for a non-positive size, which the options prevent.
		panic(err)
	}
	c.entries = entries
	return c
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

// Get returns the entry for key whether fresh or not.
func (c *Cache) Get(key string) (*Entry, bool) {
	return c.entries.Get(key)
}

// Fresh returns the entry for key only if it is fresh.
func (c *Cache) Fresh(key string) (*Entry, bool) {
	e, ok := c.entries.Get(key)
	if !ok || !e.Fresh(c.now()) {
		return nil, false
	}
	return e, true
}

// Set stores e under e.Key. UpdatedAt is set to now when zero.
func (c *Cache) Set(e *Entry) {
	e = e.clone()
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = c.now()
	}
	c.mu.Lock()
	c.entries.Add(e.Key, e)
	c.mu.Unlock()
}

// Commit clears the Preload flag of the entry under key, if any.
func (c *Cache) Commit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(key)
	if !ok || !e.Preload {
		return
	}
	cp := e.clone()
	cp.Preload = false
	c.entries.Add(key, cp)
}

// Delete removes the entry under key.
func (c *Cache) Delete(key string) {
	c.entries.Remove(key)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Keys returns keys from oldest to newest use.
func (c *Cache) Keys() []string {
	return c.entries.Keys()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Invalidate marks entries for which filter returns true as invalid, or all
// entries when filter is nil. It returns the number marked.
func (c *Cache) Invalidate(filter func(*Entry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok || e.Invalid {
			continue
		}
		if filter != nil && !filter(e) {
			continue
		}
		cp := e.clone()
		cp.Invalid = true
		c.entries.Add(key, cp)
		n++
	}
	return n
}

// GC removes entries that are not fresh and were written more than GCTime
// ago. Keys in keep are never removed. It returns the number removed.
func (c *Cache) GC(keep map[string]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, key := range c.entries.Keys() {
		if keep[key] {
			continue
		}
		e, ok := c.entries.Peek(key)
		if !ok || e.Fresh(now) || e.Age(now) < c.gcTime {
			continue
		}
		c.entries.Remove(key)
		n++
	}
	return n
}

// ErrNilEntry is returned when a LoadFunc returns neither an entry nor an
// error.
var ErrNilEntry = errors.New("loadercache: load returned nil entry")

// errAbandoned marks a load whose callers all left before it finished.
// Callers that joined it late load again.
var errAbandoned = errors.New("loadercache: load abandoned")

// maxJoins bounds how often one Load rejoins after landing on an abandoned
// flight.
const maxJoins = 3

// Load returns the entry for key, running fn when there is no fresh entry.
// Concurrent loads of one key share a single fn call. The ctx passed to fn
// ends only when every caller sharing the call has gone. The result of fn
// is stored even if the callers left before it returned.
func (c *Cache) Load(ctx context.Context, key string, p Policy, fn LoadFunc) (*Entry, Outcome, error) {
	now := c.now()
	if e, ok := c.entries.Get(key); ok && !p.Force {
		if e.Fresh(now) {
			c.hit(key)
			return e, Hit, nil
		}
		if p.StaleWhileRevalidate && !e.Invalid {
			if c.hooks.OnStale != nil {
				c.hooks.OnStale(key)
			}
			go func() {
				_, _ = c.run(context.WithoutCancel(ctx), key, p, fn)
			}()
			return e, Stale, nil
		}
	}

	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(key)
	}
	e, err := c.run(ctx, key, p, fn)
	if err != nil {
		return nil, Miss, err
	}
	return e, Miss, nil
}

func (c *Cache) hit(key string) {
	if c.hooks.OnHit != nil {
		c.hooks.OnHit(key)
	}
}

// flight is the context shared by every caller of one in-flight load.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.inflight[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.inflight[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.inflight[key] == f {
		delete(c.inflight, key)
	}
}

func (c *Cache) run(ctx context.Context, key string, p Policy, fn LoadFunc) (*Entry, error) {
	for attempt := 1; ; attempt++ {
		e, err := c.runOnce(ctx, key, p, fn)
		if !errors.Is(err, errAbandoned) {
			return e, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxJoins {
			return nil, err
		}
	}
}

func (c *Cache) runOnce(ctx context.Context, key string, p Policy, fn LoadFunc) (*Entry, error) {
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.flights.DoChan(key, func() (any, error) {
		produced, err := fn(f.ctx)
		if err != nil {
			if f.ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errAbandoned, err)
			}
			return nil, err
		}
		if produced == nil {
			return nil, ErrNilEntry
		}
		e := &Entry{
			Key:       key,
			RouteID:   produced.RouteID,
			Data:      produced.Data,
			Context:   produced.Context,
			UpdatedAt: c.now(),
			MaxAge:    p.MaxAge,
			Preload:   p.Preload,
		}
		c.mu.Lock()
		c.entries.Add(key, e)
		c.mu.Unlock()
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
