package syncbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisBus(t *testing.T) (*RedisBus, *redis.Client, context.Context) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBus(client, "warden:")
	t.Cleanup(func() {
		_ = bus.Close()
		_ = client.Close()
		mr.Close()
	})
	return bus, client, context.Background()
}

func TestRedisBusPublishSubscribeFlowAndMetrics(t *testing.T) {
	bus, _, ctx := newRedisBus(t)
	ch, err := bus.Subscribe(ctx, UnlockTopic("k"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, UnlockTopic("k")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectNotified(t, ch)
	m := bus.Metrics()
	if m.Published != 1 || m.Delivered != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestRedisBusUsesPrefixedChannels(t *testing.T) {
	bus, client, ctx := newRedisBus(t)
	ch, err := bus.Subscribe(ctx, LockTopic("k"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := client.Publish(ctx, "warden:lock:k", "1").Err(); err != nil {
		t.Fatalf("raw publish: %v", err)
	}
	expectNotified(t, ch)
}

func TestRedisBusContextUnsubscribe(t *testing.T) {
	bus, _, _ := newRedisBus(t)
	subCtx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(subCtx, "t")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for unsubscribe")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.subs["t"]; ok {
		t.Fatal("subscription still present after context cancel")
	}
}
