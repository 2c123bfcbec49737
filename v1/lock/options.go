package lock

import (
	"log/slog"
	"time"

	"github.com/mirkobrombin/go-warden/v1/store"
	"github.com/mirkobrombin/go-warden/v1/syncbus"
)

const (
	// DefaultWatchdogFloor is the shortest renewal period, whatever the TTL.
	DefaultWatchdogFloor = 100 * time.Millisecond
	// DefaultRetryInterval is used by Acquire when retry is not positive.
	DefaultRetryInterval = 100 * time.Millisecond
)

// Option configures a Handle.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	bus          syncbus.Bus
	floor        time.Duration
	watchdog     bool
	tracing      bool
	onRenewError func(key string, err error)
	storeOpts    []store.RedisOption
}

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		floor:    DefaultWatchdogFloor,
		watchdog: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for watchdog and close failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBus publishes lock and unlock events for every first acquisition and
// full release made through the handle.
func WithBus(bus syncbus.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithWatchdogFloor sets the minimum renewal period. Non-positive values
// keep the default.
func WithWatchdogFloor(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.floor = d
		}
	}
}

// WithoutWatchdog disables lease renewal. A held lock then expires after its
// TTL unless released first.
func WithoutWatchdog() Option {
	return func(o *options) {
		o.watchdog = false
	}
}

// WithTracing enables OpenTelemetry spans for lock operations.
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}

// WithRenewErrorHook registers fn to be called for every watchdog tick that
// fails to reach the store. fn runs on the watchdog goroutine.
func WithRenewErrorHook(fn func(key string, err error)) Option {
	return func(o *options) {
		o.onRenewError = fn
	}
}

// WithStoreOptions configures the Redis connections dialed by Open.
func WithStoreOptions(opts ...store.RedisOption) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}
