package rate

import (
	"context"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

const localPruneThreshold = 10_000

// LocalBackend keeps one token bucket per key in process memory.
// Budgets are not shared between processes.
type LocalBackend struct {
	mu      sync.Mutex
	buckets map[string]*xrate.Limiter
	now     func() time.Time
}

// NewLocalBackend returns an empty in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		buckets: make(map[string]*xrate.Limiter),
		now:     time.Now,
	}
}

// Exhausted implements Backend.
func (b *LocalBackend) Exhausted(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lim, ok := b.buckets[key]
	if !ok {
		return false, nil
	}
	return lim.TokensAt(b.now()) < 1, nil
}

// Hit implements Backend.
func (b *LocalBackend) Hit(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lim := b.bucket(key, max, window)
	return !lim.AllowN(b.now(), 1), nil
}

// Reset implements Backend.
func (b *LocalBackend) Reset(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.buckets, key)
	}
	return nil
}

func (b *LocalBackend) bucket(key string, max int, window time.Duration) *xrate.Limiter {
	if lim, ok := b.buckets[key]; ok {
		return lim
	}
	if len(b.buckets) >= localPruneThreshold {
		b.prune()
	}
	if max <= 0 {
		max = 1
	}
	every := xrate.Inf
	if window > 0 {
		every = xrate.Every(window / time.Duration(max))
	}
	lim := xrate.NewLimiter(every, max)
	b.buckets[key] = lim
	return lim
}

// prune drops buckets that have fully refilled; they hold no state worth keeping.
func (b *LocalBackend) prune() {
	now := b.now()
	for key, lim := range b.buckets {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(b.buckets, key)
		}
	}
}
