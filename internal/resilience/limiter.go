// internal/resilience/limiter.go
package resilience

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/events"
	"golang.org/x/time/rate"
)

// RateLimitError reports a request rejected by the rate limiter.
type RateLimitError struct {
	Key             string
	Limit           float64
	Window          time.Duration
	TokensAvailable float64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %g requests per %s", e.Limit, e.Window)
}

// Code returns the stable error code for this error kind.
func (e *RateLimitError) Code() string {
	return "RATE_LIMIT_EXCEEDED"
}

// RateLimiter applies per-key token buckets. Tokens accrue continuously
// at limit-per-window, capped at capacity; buckets are created lazily,
// start full, and are never evicted.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	limit    float64
	window   time.Duration
	capacity int
	sink     events.Sink
}

// NewRateLimiter creates a limiter allowing limit requests per window,
// with burst capacity (defaults to limit when non-positive).
func NewRateLimiter(limit float64, window time.Duration, capacity int) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if capacity <= 0 {
		capacity = int(limit)
	}
	return &RateLimiter{
		buckets:  make(map[string]*rate.Limiter),
		limit:    limit,
		window:   window,
		capacity: capacity,
	}
}

// SetSink attaches an event sink notified on each rejection.
func (l *RateLimiter) SetSink(sink events.Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// bucket returns the limiter for key, creating a full bucket if absent.
func (l *RateLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	b := rate.NewLimiter(rate.Limit(l.limit/l.window.Seconds()), l.capacity)
	l.buckets[key] = b
	return b
}

// CheckLimit consumes tokens from key's bucket. Returns RateLimitError
// when insufficient tokens are available; the caller decides whether to
// wait (see WaitTime) or fail.
func (l *RateLimiter) CheckLimit(ctx context.Context, key string, tokens int) error {
	b := l.bucket(key)
	now := time.Now()
	if b.AllowN(now, tokens) {
		return nil
	}

	available := b.TokensAt(now)
	if available < 0 {
		available = 0
	}

	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	events.Emit(ctx, sink, events.Event{
		Kind:   events.KindRateLimited,
		Detail: key,
	})

	return &RateLimitError{
		Key:             key,
		Limit:           l.limit,
		Window:          l.window,
		TokensAvailable: available,
	}
}

// WaitTime reports how long until key's bucket can satisfy tokens.
// Zero means the request would be admitted now.
func (l *RateLimiter) WaitTime(key string, tokens int) time.Duration {
	b := l.bucket(key)
	available := b.TokensAt(time.Now())
	if available >= float64(tokens) {
		return 0
	}

	needed := float64(tokens) - available
	seconds := needed / l.limit * l.window.Seconds()
	return time.Duration(seconds * float64(time.Second))
}

// Keys returns all bucket keys in sorted order.
func (l *RateLimiter) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.buckets))
	for k := range l.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
