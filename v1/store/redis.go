package store

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	wardenerrors "github.com/mirkobrombin/go-warden/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// RedisStore implements Store using a Redis backend.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
	client  *redis.Options
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// WithClientOptions sets the go-redis options used by a dialer. Addr is
// always taken from the endpoint.
func WithClientOptions(opts *redis.Options) RedisOption {
	return func(o *redisStoreOptions) {
		o.client = opts
	}
}

// NewRedisStore returns a new RedisStore using the provided Redis client.
// The store owns the client and closes it on Close.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, timeout: o.timeout}
}

// NewRedisDialer returns a Dialer that opens a fresh client for endpoint on
// every call. The endpoint is either host:port or a redis:// URL. Each
// dialed store is verified with PING.
func NewRedisDialer(endpoint string, opts ...RedisOption) (Dialer, error) {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	base, err := parseEndpoint(endpoint, o.client)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (Store, error) {
		cfg := *base
		client := redis.NewClient(&cfg)
		s := NewRedisStore(client, WithTimeout(o.timeout))
		cctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		if err := client.Ping(cctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("store: ping %s: %w", cfg.Addr, translate(err))
		}
		return s, nil
	}, nil
}

func parseEndpoint(endpoint string, base *redis.Options) (*redis.Options, error) {
	if strings.Contains(endpoint, "://") {
		parsed, err := redis.ParseURL(endpoint)
		if err != nil {
			return nil, fmt.Errorf("store: parse endpoint: %w", err)
		}
		return parsed, nil
	}
	var cfg redis.Options
	if base != nil {
		cfg = *base
	}
	cfg.Addr = endpoint
	return &cfg, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, context.DeadlineExceeded):
		return wardenerrors.ErrTimeout
	case stdErrors.Is(err, redis.ErrClosed):
		return wardenerrors.ErrConnectionClosed
	}
	return err
}

func (s *RedisStore) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, translate(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	return cctx, cancel, nil
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer cancel()
	v, err := s.client.Get(cctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, translate(err)
	}
	return v, true, nil
}

// SetNX implements Store.SetNX.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()
	ok, err := s.client.SetNX(cctx, key, value, ttl).Result()
	if err != nil {
		return false, translate(err)
	}
	return ok, nil
}

// Set implements Store.Set.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return translate(s.client.Set(cctx, key, value, ttl).Err())
}

// Delete implements Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return translate(s.client.Del(cctx, key).Err())
}

// TTL implements Store.TTL.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	d, err := s.client.PTTL(cctx, key).Result()
	if err != nil {
		return 0, translate(err)
	}
	return d, nil
}

// Eval implements Store.Eval. The script is sent by digest first and
// loaded on NOSCRIPT.
func (s *RedisStore) Eval(ctx context.Context, script *Script, keys []string, args ...any) (any, error) {
	cctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	v, err := script.script.Run(cctx, s.client, keys, args...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return v, nil
}

// Close implements Store.Close.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
