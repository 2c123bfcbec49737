package syncbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockBus struct {
	*InMemoryBus
	publishErr error
	calls      int
}

func (m *mockBus) Publish(ctx context.Context, topic string) error {
	m.calls++
	if m.publishErr != nil {
		return m.publishErr
	}
	return m.InMemoryBus.Publish(ctx, topic)
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	mb := &mockBus{InMemoryBus: NewInMemoryBus()}
	timeout := 50 * time.Millisecond
	cb := NewCircuitBreaker(mb, 2, timeout)
	ctx := context.Background()
	failErr := errors.New("fail")

	if !cb.IsHealthy() {
		t.Fatal("expected healthy initially")
	}
	mb.publishErr = failErr
	if err := cb.Publish(ctx, "t"); !errors.Is(err, failErr) {
		t.Fatalf("expected failErr, got %v", err)
	}
	if !cb.IsHealthy() {
		t.Fatal("expected healthy after 1 failure (threshold 2)")
	}
	if err := cb.Publish(ctx, "t"); !errors.Is(err, failErr) {
		t.Fatalf("expected failErr, got %v", err)
	}
	if cb.IsHealthy() {
		t.Fatal("expected open after threshold reached")
	}
	if err := cb.Publish(ctx, "t"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if mb.calls != 2 {
		t.Fatalf("open breaker must not call the bus, calls %d", mb.calls)
	}

	time.Sleep(timeout + 10*time.Millisecond)
	mb.publishErr = nil
	if err := cb.Publish(ctx, "t"); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if !cb.IsHealthy() {
		t.Fatal("expected closed after successful probe")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	mb := &mockBus{InMemoryBus: NewInMemoryBus(), publishErr: errors.New("down")}
	cb := NewCircuitBreaker(mb, 1, 20*time.Millisecond)
	ctx := context.Background()
	_ = cb.Publish(ctx, "t")
	time.Sleep(30 * time.Millisecond)
	if err := cb.Publish(ctx, "t"); err == nil || errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected probe to reach the bus and fail, got %v", err)
	}
	if err := cb.Publish(ctx, "t"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened breaker, got %v", err)
	}
}
