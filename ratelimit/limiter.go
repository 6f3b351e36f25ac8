package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/vinayprograms/talentkit/errors"
)

// Resources paced by the kit.
const (
	ResourceLLM       = "llm"
	ResourceEmbedding = "embedding"
)

// bucket is a token bucket with continuous refill.
type bucket struct {
	capacity   int
	available  float64
	window     time.Duration
	lastRefill time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.available += float64(b.capacity) * float64(elapsed) / float64(b.window)
	if b.available > float64(b.capacity) {
		b.available = float64(b.capacity)
	}
	b.lastRefill = now
}

// untilNext returns how long until one whole token is available.
func (b *bucket) untilNext() time.Duration {
	missing := 1 - b.available
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(b.window) / float64(b.capacity))
}

// Capacity describes a resource's bucket.
type Capacity struct {
	Resource  string
	Available int
	Total     int
	Window    time.Duration
}

// Limiter holds one bucket per resource. Resources without a capacity are
// not limited. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	done    chan struct{}
	nowFunc func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
		nowFunc: time.Now,
	}
}

// SetCapacity allows capacity calls per window for resource. A capacity or
// window of zero removes the limit. The bucket starts full.
func (l *Limiter) SetCapacity(resource string, capacity int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if capacity <= 0 || window <= 0 {
		delete(l.buckets, resource)
		return
	}
	if b, ok := l.buckets[resource]; ok {
		b.refill(l.nowFunc())
		b.capacity = capacity
		b.window = window
		if b.available > float64(capacity) {
			b.available = float64(capacity)
		}
		return
	}
	l.buckets[resource] = &bucket{
		capacity:   capacity,
		available:  float64(capacity),
		window:     window,
		lastRefill: l.nowFunc(),
	}
}

// GetCapacity returns the bucket state, or nil if resource is unlimited.
func (l *Limiter) GetCapacity(resource string) *Capacity {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[resource]
	if !ok {
		return nil
	}
	b.refill(l.nowFunc())
	return &Capacity{
		Resource:  resource,
		Available: int(b.available),
		Total:     b.capacity,
		Window:    b.window,
	}
}

// TryAcquire takes a token without waiting.
func (l *Limiter) TryAcquire(resource string) bool {
	ok, _, _ := l.take(resource)
	return ok
}

// Acquire takes a token, waiting for a refill if needed.
func (l *Limiter) Acquire(ctx context.Context, resource string) error {
	for {
		ok, wait, err := l.take(resource)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), "waiting for rate limit",
				errors.WithMetadata("resource", resource))
		case <-l.done:
			timer.Stop()
			return errClosed()
		case <-timer.C:
		}
	}
}

// take returns whether a token was taken and, if not, how long to wait.
func (l *Limiter) take(resource string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, 0, errClosed()
	}
	b, ok := l.buckets[resource]
	if !ok {
		return true, 0, nil
	}
	b.refill(l.nowFunc())
	if b.available >= 1 {
		b.available--
		return true, 0, nil
	}
	wait := b.untilNext()
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return false, wait, nil
}

// Close wakes every waiter with an error. Later calls fail.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}

func errClosed() error {
	return errors.New(errors.ErrCodeCanceled, "rate limiter closed")
}
