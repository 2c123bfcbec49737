// Package syncbus propagates lock lifecycle events between processes.
// A lock handle publishes "lock:<key>" after a first acquisition and
// "unlock:<key>" after a full release; observers subscribe to those topics.
package syncbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Bus provides a simple pub/sub mechanism keyed by topic.
type Bus interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (chan struct{}, error)
	Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error
}

// LockTopic returns the topic published when key is acquired.
func LockTopic(key string) string { return "lock:" + key }

// UnlockTopic returns the topic published when key is fully released.
func UnlockTopic(key string) string { return "unlock:" + key }

// Metrics reports bus activity.
type Metrics struct {
	Published uint64
	Delivered uint64
}

// InMemoryBus is a process-local Bus, mainly for testing and single-node use.
type InMemoryBus struct {
	mu        sync.Mutex
	subs      map[string][]chan struct{}
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan struct{})}
}

// Publish implements Bus.Publish. Delivery never blocks: a subscriber with a
// pending notification does not receive a second one.
func (b *InMemoryBus) Publish(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.published.Add(1)
	b.mu.Lock()
	fanOut(b.subs[topic], &b.delivered)
	b.mu.Unlock()
	return nil
}

// Subscribe implements Bus.Subscribe. The subscription ends when ctx is done.
func (b *InMemoryBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), topic, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := removeChan(b.subs[topic], ch)
	if !ok {
		return nil
	}
	if len(subs) == 0 {
		delete(b.subs, topic)
	} else {
		b.subs[topic] = subs
	}
	return nil
}

// Metrics returns the published and delivered counts.
func (b *InMemoryBus) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{Published: b.published.Load(), Delivered: b.delivered.Load()}
}

func fanOut(chans []chan struct{}, delivered *atomic.Uint64) {
	for _, ch := range chans {
		select {
		case ch <- struct{}{}:
			delivered.Add(1)
		default:
		}
	}
}

// removeChan drops ch from subs and closes it. It reports whether ch was found.
func removeChan(subs []chan struct{}, ch chan struct{}) ([]chan struct{}, bool) {
	for i, c := range subs {
		if c == ch {
			subs[i] = subs[len(subs)-1]
			close(c)
			return subs[:len(subs)-1], true
		}
	}
	return subs, false
}
