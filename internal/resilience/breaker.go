// Package resilience guards calls to external CLI tools with circuit
// breakers and per-key token-bucket rate limits. Instances are
// constructed explicitly and injected; there is no package-level state.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/ensemble/internal/events"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// BreakerOpenError reports a call rejected by an open breaker.
type BreakerOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("%s: service unavailable, retry after %s", e.Name, e.RetryAfter.Round(time.Second))
}

// Code returns the stable error code for this error kind.
func (e *BreakerOpenError) Code() string {
	return "CIRCUIT_OPEN"
}

// CircuitBreaker stops calling a failing dependency for a cooldown
// period. Closed passes calls through; open rejects immediately;
// half_open lets exactly one trial call decide the next state.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	lastFailureTime time.Time

	sink events.Sink
}

// NewCircuitBreaker creates a closed breaker for the named dependency.
// Non-positive threshold or timeout fall back to the defaults.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
}

// SetSink attaches an event sink for state change notifications.
func (b *CircuitBreaker) SetSink(sink events.Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Call runs fn under the breaker. The wrapped function runs outside the
// lock. Context cancellation is not counted as a dependency failure.
func (b *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	b.after(ctx, err)
	return err
}

// before admits or rejects the call and handles the open -> half_open
// transition.
func (b *CircuitBreaker) before(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := time.Since(b.lastFailureTime)
		if elapsed >= b.recoveryTimeout {
			b.transition(ctx, StateHalfOpen)
			return nil
		}
		return &BreakerOpenError{Name: b.name, RetryAfter: b.recoveryTimeout - elapsed}
	case StateHalfOpen:
		// Trial call already in flight
		return &BreakerOpenError{Name: b.name, RetryAfter: b.recoveryTimeout}
	}
	return nil
}

// after applies the call outcome to the state machine.
func (b *CircuitBreaker) after(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failureCount = 0
		if b.state != StateClosed {
			b.transition(ctx, StateClosed)
		}
		return
	}

	if errors.Is(err, context.Canceled) {
		// Caller gave up; says nothing about dependency health
		return
	}

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateHalfOpen:
		b.transition(ctx, StateOpen)
	case StateClosed:
		if b.failureCount >= b.failureThreshold {
			b.transition(ctx, StateOpen)
		}
	}
}

// transition records a state change. Caller must hold the lock.
func (b *CircuitBreaker) transition(ctx context.Context, next BreakerState) {
	b.state = next
	events.Emit(ctx, b.sink, events.Event{
		Kind:   events.KindBreakerState,
		Agent:  b.name,
		Detail: next.String(),
	})
}

// BreakerRegistry hands out one breaker per dependency name, created
// lazily with shared thresholds. Scoped to the orchestrator lifetime.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	failureThreshold int
	recoveryTimeout  time.Duration
	sink             events.Sink
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(failureThreshold int, recoveryTimeout time.Duration) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// SetSink attaches an event sink applied to all breakers, including
// ones created later.
func (r *BreakerRegistry) SetSink(sink events.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
	for _, b := range r.breakers {
		b.SetSink(sink)
	}
}

// Get returns the breaker for name, creating it if needed.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, r.failureThreshold, r.recoveryTimeout)
	if r.sink != nil {
		b.SetSink(r.sink)
	}
	r.breakers[name] = b
	return b
}

// States returns a snapshot of every breaker's current state.
func (r *BreakerRegistry) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]BreakerState, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
