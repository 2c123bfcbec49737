package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	wardenerrors "github.com/mirkobrombin/go-warden/v1/errors"
	"github.com/mirkobrombin/go-warden/v1/metrics"
	"github.com/mirkobrombin/go-warden/v1/store"
	"github.com/mirkobrombin/go-warden/v1/syncbus"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-warden/v1/lock")

// minRetrySleep bounds the last sleep of Acquire before its deadline.
const minRetrySleep = time.Millisecond

// heldLock is the lock a Handle last acquired. It is replaced as a whole so
// the watchdog never observes a partial update.
type heldLock struct {
	key   string
	owner string
	ttl   time.Duration
}

// Handle is a client-side lock handle. It owns one business connection and,
// while a lock is held, a watchdog with its own connection. A Handle tracks
// a single lock at a time and is meant to be used by one goroutine; the
// watchdog is the only other party touching it.
type Handle struct {
	id   string
	st   store.Store
	dial store.Dialer
	opts options

	held atomic.Pointer[heldLock]

	mu     sync.Mutex
	wd     *watchdog
	closed bool

	watchdogStops atomic.Int64
}

// Open dials endpoint (host:port or redis:// URL) and returns a Handle whose
// watchdog dials the same endpoint separately.
func Open(ctx context.Context, endpoint string, opts ...Option) (*Handle, error) {
	o := newOptions(opts)
	dial, err := store.NewRedisDialer(endpoint, o.storeOpts...)
	if err != nil {
		return nil, err
	}
	st, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock: open: %w", err)
	}
	return New(st, dial, opts...), nil
}

// New returns a Handle over st. dial opens the watchdog connection; when it
// is nil the watchdog shares st.
func New(st store.Store, dial store.Dialer, opts ...Option) *Handle {
	id, err := uuid.GenerateUUID()
	if err != nil {
		id = processID
	}
	return &Handle{id: id, st: st, dial: dial, opts: newOptions(opts)}
}

// ID identifies the handle in logs and traces.
func (h *Handle) ID() string { return h.id }

// Held reports the lock the handle currently believes it holds.
func (h *Handle) Held() (key, owner string, ok bool) {
	cur := h.held.Load()
	if cur == nil {
		return "", "", false
	}
	return cur.key, cur.owner, true
}

// TryAcquire makes a single attempt to take key for owner with the given
// lease. It returns true on a first or reentrant acquisition and false when
// another owner holds the key. It never starts the watchdog.
func (h *Handle) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl < time.Millisecond {
		return false, wardenerrors.ErrInvalidTTL
	}
	if h.isClosed() {
		return false, wardenerrors.ErrHandleClosed
	}
	ctx, span := h.startSpan(ctx, "Handle.TryAcquire", key)
	defer span.End()

	count, err := evalInt(ctx, h.st, acquireScript, key, owner, ttl.Milliseconds())
	if err != nil {
		metrics.AcquireCounter.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if count < 1 {
		metrics.AcquireCounter.WithLabelValues(metrics.ResultContended).Inc()
		return false, nil
	}
	h.held.Store(&heldLock{key: key, owner: owner, ttl: ttl})
	h.retuneWatchdog()
	metrics.AcquireCounter.WithLabelValues(metrics.ResultAcquired).Inc()
	span.SetAttributes(attribute.Int64("warden.lock.count", count))
	if count == 1 {
		h.publish(ctx, syncbus.LockTopic(key))
	}
	return true, nil
}

// Acquire polls TryAcquire every retry until it succeeds or wait elapses.
// On success the watchdog is started unless it is already running. A
// cancelled ctx aborts the wait and returns ctx.Err(); the store is left
// untouched. On timeout the error of the last attempt, if any, is returned.
func (h *Handle) Acquire(ctx context.Context, key, owner string, ttl, wait, retry time.Duration) (bool, error) {
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	deadline := time.Now().Add(wait)
	for {
		ok, err := h.TryAcquire(ctx, key, owner, ttl)
		if ok {
			h.startWatchdog()
			return true, nil
		}
		if errors.Is(err, wardenerrors.ErrInvalidTTL) || errors.Is(err, wardenerrors.ErrHandleClosed) {
			return false, err
		}
		if cerr := ctx.Err(); cerr != nil {
			return false, cerr
		}
		timer := time.NewTimer(min(retry, max(time.Until(deadline), minRetrySleep)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
		if !time.Now().Before(deadline) {
			metrics.AcquireCounter.WithLabelValues(metrics.ResultTimeout).Inc()
			return false, err
		}
	}
}

// Release gives up one level of owner's hold on key. It returns true for a
// partial or full release and false when the key is free or held by someone
// else.
//
// The watchdog is stopped before the script runs so a renewal cannot race
// the delete. A partial release refreshes the expiry to the TTL cached from
// the handle's last acquisition of (key, owner); without such a cache entry
// the record keeps its remaining expiry.
func (h *Handle) Release(ctx context.Context, key, owner string) (bool, error) {
	if h.isClosed() {
		return false, wardenerrors.ErrHandleClosed
	}
	ctx, span := h.startSpan(ctx, "Handle.Release", key)
	defer span.End()

	wasRunning := h.stopWatchdog()
	defer func() {
		if wasRunning && h.held.Load() != nil {
			h.startWatchdog()
		}
	}()

	var ttlMs int64
	if cur := h.held.Load(); cur != nil && cur.key == key && cur.owner == owner {
		ttlMs = cur.ttl.Milliseconds()
	}
	res, err := evalInt(ctx, h.st, releaseScript, key, owner, ttlMs)
	if err != nil {
		metrics.ReleaseCounter.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Int64("warden.lock.result", res))
	switch {
	case res > 0:
		metrics.ReleaseCounter.WithLabelValues(metrics.ResultPartial).Inc()
		return true, nil
	case res == releasedFully:
		if cur := h.held.Load(); cur != nil && cur.key == key && cur.owner == owner {
			h.held.CompareAndSwap(cur, nil)
		}
		metrics.ReleaseCounter.WithLabelValues(metrics.ResultReleased).Inc()
		h.publish(ctx, syncbus.UnlockTopic(key))
		return true, nil
	default:
		metrics.ReleaseCounter.WithLabelValues(metrics.ResultNotHeld).Inc()
		return false, nil
	}
}

// Inspect reads the record stored at key and its remaining lease.
func (h *Handle) Inspect(ctx context.Context, key string) (Record, time.Duration, bool, error) {
	if h.isClosed() {
		return Record{}, 0, false, wardenerrors.ErrHandleClosed
	}
	v, ok, err := h.st.Get(ctx, key)
	if err != nil || !ok {
		return Record{}, 0, false, err
	}
	ttl, err := h.st.TTL(ctx, key)
	if err != nil {
		return Record{}, 0, false, err
	}
	return ParseRecord(v), ttl, true, nil
}

// Close stops the watchdog and closes the business connection. It does not
// release the lock. Close is idempotent and always returns nil; connection
// errors are logged.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.stopWatchdog()
	if err := h.st.Close(); err != nil {
		h.opts.logger.Warn("warden: closing store failed", "handle", h.id, "error", err)
	}
	return nil
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) publish(ctx context.Context, topic string) {
	if h.opts.bus == nil {
		return
	}
	if err := h.opts.bus.Publish(ctx, topic); err != nil {
		h.opts.logger.Debug("warden: publish lock event failed", "topic", topic, "error", err)
	}
}

func (h *Handle) startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	if !h.opts.tracing {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("warden.lock.key", key),
		attribute.String("warden.handle.id", h.id),
	))
}

func evalInt(ctx context.Context, st store.Store, script *store.Script, key string, args ...any) (int64, error) {
	v, err := st.Eval(ctx, script, []string{key}, args...)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("lock: unexpected script result %T", v)
	}
	return n, nil
}
