// Package store defines the key-value backend used by the lock package and
// provides a Redis implementation. The backend must execute scripts
// atomically; every lock transition is expressed as one script.
package store

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store is the capability set the lock protocol relies on.
type Store interface {
	// Get returns the value stored at key. The boolean reports whether the
	// key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Set overwrites key unconditionally with the given expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// TTL returns the remaining time to live of key, or a negative
	// duration when the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Eval runs script as a single indivisible operation.
	Eval(ctx context.Context, script *Script, keys []string, args ...any) (any, error)
	// Close releases the underlying connection.
	Close() error
}

// Dialer opens a new, independent connection to the backend.
type Dialer func(ctx context.Context) (Store, error)

// Script is a server-side script cached by its SHA1 digest.
type Script struct {
	src    string
	script *redis.Script
}

// NewScript wraps the Lua source src.
func NewScript(src string) *Script {
	return &Script{src: src, script: redis.NewScript(src)}
}

// Source returns the script body.
func (s *Script) Source() string { return s.src }
