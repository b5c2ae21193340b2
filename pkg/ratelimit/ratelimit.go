// Package ratelimit implements token buckets with discrete window refills.
// A bucket starts full and gains a fixed batch of tokens every refill
// window, capped at capacity. This differs from a leaky-bucket limiter in
// that denied clients get an exact wait until the next refill instead of a
// fractional trickle of tokens.
package ratelimit

import (
	"sync"
	"time"
)

// Policy describes the shape of a bucket.
type Policy struct {
	// Capacity is the maximum number of tokens a bucket can hold.
	// Buckets start full.
	Capacity int64

	// RefillTokens is the number of tokens added each refill window.
	RefillTokens int64

	// RefillWindow is how often the refill batch lands.
	RefillWindow time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	// Allowed reports whether the request consumed a token.
	Allowed bool

	// Remaining is the token count left in the bucket after this call.
	Remaining int64

	// RetryAfter is how long until the next refill lands. Only meaningful
	// when Allowed is false.
	RetryAfter time.Duration
}

// bucket is the per-key state. Access is serialised by mu so concurrent
// requests for the same key never double-spend a token.
type bucket struct {
	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time // window anchor, advances in whole windows
	lastSeen   time.Time
}

// Registry owns all buckets. Keys are arbitrary strings; callers typically
// use "clientIP:route" so each client gets an independent bucket per route.
type Registry struct {
	buckets sync.Map // map[string]*bucket

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistry returns an empty Registry using the wall clock.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// NewRegistryWithClock returns a Registry using the given clock.
func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{now: now}
}

// Allow attempts to consume one token from the bucket for key, creating a
// full bucket on first sight. The policy is evaluated per call, so the same
// registry can serve routes with different policies.
func (r *Registry) Allow(key string, p Policy) Decision {
	b := r.bucketFor(key, p)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := r.now()
	b.refill(now, p)
	b.lastSeen = now

	if b.tokens > 0 {
		b.tokens--
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	return Decision{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: b.untilNextRefill(now, p),
	}
}

// Info reports the bucket state for key without consuming a token.
// A key that has never been seen reports a full bucket.
func (r *Registry) Info(key string, p Policy) Decision {
	v, ok := r.buckets.Load(key)
	if !ok {
		return Decision{Allowed: true, Remaining: p.Capacity}
	}

	b := v.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := r.now()
	b.refill(now, p)

	d := Decision{Allowed: b.tokens > 0, Remaining: b.tokens}
	if !d.Allowed {
		d.RetryAfter = b.untilNextRefill(now, p)
	}
	return d
}

// Sweep drops buckets that have not been touched for at least idleFor.
// It returns the number of buckets evicted. An idle bucket would have
// refilled to capacity anyway, so dropping it is observably identical to
// keeping it.
func (r *Registry) Sweep(idleFor time.Duration) int {
	now := r.now()
	evicted := 0

	r.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastSeen) >= idleFor
		b.mu.Unlock()

		if idle {
			r.buckets.Delete(key)
			evicted++
		}
		return true
	})

	return evicted
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	n := 0
	r.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) bucketFor(key string, p Policy) *bucket {
	// Fast path: bucket already exists.
	if v, ok := r.buckets.Load(key); ok {
		return v.(*bucket)
	}

	now := r.now()
	fresh := &bucket{
		tokens:     p.Capacity,
		lastRefill: now,
		lastSeen:   now,
	}
	actual, _ := r.buckets.LoadOrStore(key, fresh)
	return actual.(*bucket)
}

// refill credits whole elapsed windows and advances the anchor by exactly
// those windows, so partial progress towards the next refill is preserved.
// Caller must hold b.mu.
func (b *bucket) refill(now time.Time, p Policy) {
	if p.RefillWindow <= 0 {
		return
	}

	elapsed := now.Sub(b.lastRefill)
	windows := int64(elapsed / p.RefillWindow)
	if windows <= 0 {
		return
	}

	b.tokens += windows * p.RefillTokens
	if b.tokens > p.Capacity {
		b.tokens = p.Capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(windows) * p.RefillWindow)
}

// untilNextRefill returns the time remaining until the next refill lands.
// Caller must hold b.mu, after refill has run for now.
func (b *bucket) untilNextRefill(now time.Time, p Policy) time.Duration {
	if p.RefillWindow <= 0 {
		return 0
	}

	wait := b.lastRefill.Add(p.RefillWindow).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}
