// ABOUTME: Bounded TTL set of recently seen keys, generic over the key type
// ABOUTME: Lets the Telegram bridge drop redelivered updates and double-tapped buttons

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// DefaultTTL and DefaultSize suit a single bot instance.
const (
	DefaultTTL  = 10 * time.Minute
	DefaultSize = 10000
)

type entry[K comparable] struct {
	key    K
	seenAt time.Time
}

// Cache remembers keys for a TTL, holding at most maxSize of them. The
// oldest key is evicted first.
type Cache[K comparable] struct {
	mu      sync.Mutex
	index   map[K]*list.Element
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now   func() time.Time
	sweep time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often expired keys are purged. Zero disables
// the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweep = d }
}

// New creates a cache. Non-positive ttl or maxSize fall back to the defaults.
func New[K comparable](ttl time.Duration, maxSize int, opts ...Option) *Cache[K] {
	o := options{now: time.Now, sweep: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultSize
	}

	c := &Cache[K]{
		index:   make(map[K]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     o.now,
		done:    make(chan struct{}),
	}
	if o.sweep > 0 {
		go c.sweepLoop(o.sweep)
	}
	return c
}

// Seen reports whether key was recorded within the TTL, recording it if
// not. The check and the record happen under one lock.
func (c *Cache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[K])
		if now.Sub(e.seenAt) < c.ttl {
			return true
		}
		e.seenAt = now
		c.order.MoveToBack(el)
		return false
	}

	if len(c.index) >= c.maxSize {
		c.evictOldest()
	}
	c.index[key] = c.order.PushBack(&entry[K]{key: key, seenAt: now})
	return false
}

// Contains reports whether key is live without recording it.
func (c *Cache[K]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	return ok && c.now().Sub(el.Value.(*entry[K]).seenAt) < c.ttl
}

// Forget drops key so it is accepted again.
func (c *Cache[K]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
}

// Len returns the number of keys held, expired or not.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *Cache[K]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.index, front.Value.(*entry[K]).key)
}

func (c *Cache[K]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}

// Sweep removes expired keys. Entries are ordered by last record time, so
// it stops at the first live one.
func (c *Cache[K]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Front(); el != nil; {
		e := el.Value.(*entry[K])
		if now.Sub(e.seenAt) < c.ttl {
			return
		}
		next := el.Next()
		c.order.Remove(el)
		delete(c.index, e.key)
		el = next
	}
}

// Close stops the background sweep. It is safe to call more than once.
func (c *Cache[K]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
