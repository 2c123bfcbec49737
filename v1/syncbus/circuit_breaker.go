package syncbus

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreakerBus decorates a Bus so that a failing backend stops being
// called for a cool-down period. Lock handles publish through it to keep a
// dead bus from adding latency to every acquisition.
type CircuitBreakerBus struct {
	bus       Bus
	mu        sync.Mutex
	state     state
	failures  int
	threshold int
	timeout   time.Duration
	lastFail  time.Time
}

// NewCircuitBreaker returns a new CircuitBreakerBus that opens after
// threshold consecutive failures and probes again after timeout.
func NewCircuitBreaker(bus Bus, threshold int, timeout time.Duration) *CircuitBreakerBus {
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreakerBus{bus: bus, threshold: threshold, timeout: timeout}
}

// IsHealthy returns true if calls are currently let through.
func (cb *CircuitBreakerBus) IsHealthy() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == stateOpen {
		return time.Since(cb.lastFail) > cb.timeout
	}
	return true
}

// allow handles the transition from open to half-open once the timeout elapsed.
// Only one probe is in flight while half-open.
func (cb *CircuitBreakerBus) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(cb.lastFail) > cb.timeout {
			cb.state = stateHalfOpen
			return true
		}
	}
	return false
}

func (cb *CircuitBreakerBus) record(err error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		cb.state = stateClosed
		cb.failures = 0
		return nil
	}
	cb.lastFail = time.Now()
	cb.failures++
	if cb.state == stateHalfOpen || cb.failures >= cb.threshold {
		cb.state = stateOpen
	}
	return err
}

// Publish implements Bus.Publish with circuit breaker logic.
func (cb *CircuitBreakerBus) Publish(ctx context.Context, topic string) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	return cb.record(cb.bus.Publish(ctx, topic))
}

// Subscribe implements Bus.Subscribe with circuit breaker logic.
func (cb *CircuitBreakerBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	if !cb.allow() {
		return nil, ErrCircuitOpen
	}
	ch, err := cb.bus.Subscribe(ctx, topic)
	return ch, cb.record(err)
}

// Unsubscribe is passed through; releasing a subscription must not be refused.
func (cb *CircuitBreakerBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	return cb.bus.Unsubscribe(ctx, topic, ch)
}
