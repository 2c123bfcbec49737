package syncbus

import (
	"context"
	"sync"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"
)

type natsSubscription struct {
	sub   *nats.Subscription
	chans []chan struct{}
}

// NATSBus implements Bus using a NATS backend.
type NATSBus struct {
	conn   *nats.Conn
	prefix string

	mu        sync.Mutex
	subs      map[string]*natsSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewNATSBus returns a new NATSBus using the provided connection. Subjects
// are prefix+topic.
func NewNATSBus(conn *nats.Conn, prefix string) *NATSBus {
	return &NATSBus{conn: conn, prefix: prefix, subs: make(map[string]*natsSubscription)}
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.conn.Publish(b.prefix+topic, []byte("1")); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *NATSBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	sub := b.subs[topic]
	if sub == nil {
		ns, err := b.conn.Subscribe(b.prefix+topic, func(_ *nats.Msg) {
			b.mu.Lock()
			if s := b.subs[topic]; s != nil {
				fanOut(s.chans, &b.delivered)
			}
			b.mu.Unlock()
		})
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		if err := b.conn.Flush(); err != nil {
			b.mu.Unlock()
			_ = ns.Unsubscribe()
			return nil, err
		}
		sub = &natsSubscription{sub: ns}
		b.subs[topic] = sub
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), topic, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *NATSBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	b.mu.Lock()
	sub := b.subs[topic]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	chans, ok := removeChan(sub.chans, ch)
	if !ok {
		b.mu.Unlock()
		return nil
	}
	sub.chans = chans
	if len(chans) > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.subs, topic)
	b.mu.Unlock()
	return sub.sub.Unsubscribe()
}

// Metrics returns the published and delivered counts.
func (b *NATSBus) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{Published: b.published.Load(), Delivered: b.delivered.Load()}
}
