package syncbus

import (
	"context"
	"testing"
	"time"
)

func expectNotified(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed instead of notified")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestInMemoryBusPublishSubscribeFlowAndMetrics(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()
	ch, err := bus.Subscribe(ctx, LockTopic("k"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, LockTopic("k")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectNotified(t, ch)
	if err := bus.Publish(ctx, UnlockTopic("k")); err != nil {
		t.Fatalf("publish unlock: %v", err)
	}
	m := bus.Metrics()
	if m.Published != 2 || m.Delivered != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestInMemoryBusPublishDoesNotBlockSlowSubscriber(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()
	ch, _ := bus.Subscribe(ctx, "t")
	for i := 0; i < 5; i++ {
		if err := bus.Publish(ctx, "t"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	expectNotified(t, ch)
	if m := bus.Metrics(); m.Delivered != 1 {
		t.Fatalf("expected a single pending delivery, got %d", m.Delivered)
	}
}

func TestInMemoryBusContextUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "t")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.subs["t"]; ok {
		t.Fatal("subscription still present after context cancel")
	}
}

func TestInMemoryBusCanceledContext(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, "t"); err == nil {
		t.Fatal("expected publish error due to canceled context")
	}
	if _, err := bus.Subscribe(ctx, "t"); err == nil {
		t.Fatal("expected subscribe error due to canceled context")
	}
	if m := bus.Metrics(); m.Published != 0 {
		t.Fatalf("expected published 0 got %d", m.Published)
	}
}

func TestInMemoryBusUnsubscribeTwice(t *testing.T) {
	bus := NewInMemoryBus()
	ch, _ := bus.Subscribe(context.Background(), "t")
	if err := bus.Unsubscribe(context.Background(), "t", ch); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := bus.Unsubscribe(context.Background(), "t", ch); err != nil {
		t.Fatalf("second unsubscribe: %v", err)
	}
}
