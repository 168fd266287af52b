package vertical

import (
	"context"
	"sync"
	"time"
)

// Cache read outcomes, used as metric label values.
const (
	outcomeFresh   = "fresh"
	outcomeStale   = "stale"
	outcomeExpired = "expired"
	outcomeMiss    = "miss"
)

type fetchFunc[T any] func(ctx context.Context) (T, error)

// flight is a single in-flight fetch shared by every caller that observes
// it, so concurrent refreshes for one key collapse into one store round
// trip and all waiters see the same outcome.
type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

type cacheEntry[T any] struct {
	val       T
	fetchedAt time.Time
}

// swrCache is a per-key stale-while-revalidate cache.
//
// Reads inside the TTL return the cached value with no I/O. Reads inside
// the staleness window return the cached value and trigger at most one
// background refresh for the key. Reads past TTL+stale block on a
// synchronous fetch, joining an existing flight if one is running.
//
// A failed background refresh keeps the previous stale value; a failed
// synchronous fetch propagates to every joined caller.
type swrCache[T any] struct {
	ttl   time.Duration
	stale time.Duration

	mu       sync.Mutex
	entries  map[string]*cacheEntry[T]
	inflight map[string]*flight[T]

	// onOutcome and onRefreshErr are optional observation hooks wired by
	// the registry for metrics and logging.
	onOutcome    func(outcome string)
	onRefreshErr func(key string, err error)
}

func newSWRCache[T any](ttl, stale time.Duration) *swrCache[T] {
	return &swrCache[T]{
		ttl:      ttl,
		stale:    stale,
		entries:  make(map[string]*cacheEntry[T]),
		inflight: make(map[string]*flight[T]),
	}
}

// get returns the value for key, fetching through fn per the SWR policy.
func (c *swrCache[T]) get(ctx context.Context, key string, fn fetchFunc[T]) (T, error) {
	c.mu.Lock()

	if e, ok := c.entries[key]; ok {
		age := time.Since(e.fetchedAt)

		if age < c.ttl {
			v := e.val
			c.mu.Unlock()
			c.observe(outcomeFresh)
			return v, nil
		}

		if age < c.ttl+c.stale {
			v := e.val
			if _, running := c.inflight[key]; !running {
				fl := &flight[T]{done: make(chan struct{})}
				c.inflight[key] = fl
				go c.run(context.WithoutCancel(ctx), key, fn, fl)
			}
			c.mu.Unlock()
			c.observe(outcomeStale)
			return v, nil
		}

		c.observe(outcomeExpired)
	} else {
		c.observe(outcomeMiss)
	}

	// Past the staleness window (or never cached): the caller must block.
	// Join an existing flight rather than issuing a duplicate fetch.
	if fl, running := c.inflight[key]; running {
		c.mu.Unlock()
		<-fl.done
		return fl.val, fl.err
	}

	fl := &flight[T]{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	c.run(ctx, key, fn, fl)
	return fl.val, fl.err
}

// run performs one fetch and completes fl. The result is stored only if
// the flight is still attached: a purge between fetch start and fetch
// completion detaches it, so a refresh that raced a write can never
// reinstall a pre-write snapshot.
func (c *swrCache[T]) run(ctx context.Context, key string, fn fetchFunc[T], fl *flight[T]) {
	val, err := fn(ctx)
	fl.val, fl.err = val, err

	c.mu.Lock()
	if c.inflight[key] == fl {
		delete(c.inflight, key)
		if err == nil {
			c.entries[key] = &cacheEntry[T]{val: val, fetchedAt: time.Now()}
		}
	}
	c.mu.Unlock()

	close(fl.done)

	if err != nil && c.onRefreshErr != nil {
		c.onRefreshErr(key, err)
	}
}

// purge drops the entry for key and detaches any in-flight fetch.
func (c *swrCache[T]) purge(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	delete(c.inflight, key)
	c.mu.Unlock()
}

// purgeAll drops every entry and detaches all in-flight fetches.
func (c *swrCache[T]) purgeAll() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry[T])
	c.inflight = make(map[string]*flight[T])
	c.mu.Unlock()
}

func (c *swrCache[T]) observe(outcome string) {
	if c.onOutcome != nil {
		c.onOutcome(outcome)
	}
}
