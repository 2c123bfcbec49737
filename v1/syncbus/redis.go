package syncbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisBusTimeout = 5 * time.Second

type redisSubscription struct {
	pubsub *redis.PubSub
	chans  []chan struct{}
}

// RedisBus implements Bus over Redis pub/sub. Topics map to channels with
// the configured prefix.
type RedisBus struct {
	client *redis.Client
	prefix string

	mu        sync.Mutex
	subs      map[string]*redisSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewRedisBus returns a new RedisBus using the provided Redis client.
// Channel names are prefix+topic.
func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	return &RedisBus{client: client, prefix: prefix, subs: make(map[string]*redisSubscription)}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	cctx, cancel := context.WithTimeout(ctx, redisBusTimeout)
	defer cancel()
	if err := b.client.Publish(cctx, b.prefix+topic, "1").Err(); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe. The first subscriber of a topic opens
// a Redis subscription and waits for its confirmation.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	sub := b.subs[topic]
	if sub == nil {
		ps := b.client.Subscribe(context.Background(), b.prefix+topic)
		cctx, cancel := context.WithTimeout(ctx, redisBusTimeout)
		_, err := ps.Receive(cctx)
		cancel()
		if err != nil {
			b.mu.Unlock()
			_ = ps.Close()
			return nil, err
		}
		sub = &redisSubscription{pubsub: ps}
		b.subs[topic] = sub
		go b.dispatch(topic, ps)
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), topic, ch)
	}()
	return ch, nil
}

func (b *RedisBus) dispatch(topic string, ps *redis.PubSub) {
	for range ps.Channel() {
		b.mu.Lock()
		if sub := b.subs[topic]; sub != nil && sub.pubsub == ps {
			fanOut(sub.chans, &b.delivered)
		}
		b.mu.Unlock()
	}
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *RedisBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
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
	return sub.pubsub.Close()
}

// Close drops every subscription.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, sub := range b.subs {
		_ = sub.pubsub.Close()
		for _, ch := range sub.chans {
			close(ch)
		}
		delete(b.subs, topic)
	}
	return nil
}

// Metrics returns the published and delivered counts.
func (b *RedisBus) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{Published: b.published.Load(), Delivered: b.delivered.Load()}
}
