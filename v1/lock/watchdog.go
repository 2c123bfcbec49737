package lock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/mirkobrombin/go-warden/v1/metrics"
	"github.com/mirkobrombin/go-warden/v1/store"
)

type watchdog struct {
	cancel context.CancelFunc
	done   chan struct{}
	// period is guarded by Handle.mu; reset signals the loop to pick it up.
	period time.Duration
	reset  chan struct{}
}

// renewPeriod returns max(floor, ttl/3).
func renewPeriod(ttl, floor time.Duration) time.Duration {
	if p := ttl / 3; p > floor {
		return p
	}
	return floor
}

// startWatchdog launches lease renewal for the cached lock. It is a no-op
// when a watchdog is already running, renewal is disabled, the handle is
// closed or nothing is held.
func (h *Handle) startWatchdog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.wd != nil || !h.opts.watchdog {
		return
	}
	cur := h.held.Load()
	if cur == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	wd := &watchdog{
		cancel: cancel,
		done:   make(chan struct{}),
		period: renewPeriod(cur.ttl, h.opts.floor),
		reset:  make(chan struct{}, 1),
	}
	h.wd = wd
	metrics.WatchdogGauge.Inc()
	go h.runWatchdog(ctx, wd, wd.period)
}

// retuneWatchdog recomputes the renewal period of a running watchdog from
// the cached lease, so a shorter TTL taken later is renewed in time.
func (h *Handle) retuneWatchdog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	wd := h.wd
	cur := h.held.Load()
	if wd == nil || cur == nil {
		return
	}
	p := renewPeriod(cur.ttl, h.opts.floor)
	if p == wd.period {
		return
	}
	wd.period = p
	select {
	case wd.reset <- struct{}{}:
	default:
	}
}

func (h *Handle) watchdogPeriod() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wd == nil {
		return 0
	}
	return h.wd.period
}

// stopWatchdog cancels the running watchdog and waits until its connection
// is closed. It reports whether a watchdog was running.
func (h *Handle) stopWatchdog() bool {
	h.mu.Lock()
	wd := h.wd
	h.wd = nil
	h.mu.Unlock()
	if wd == nil {
		return false
	}
	wd.cancel()
	<-wd.done
	metrics.WatchdogGauge.Dec()
	h.watchdogStops.Add(1)
	return true
}

func (h *Handle) watchdogRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wd != nil
}

func (h *Handle) runWatchdog(ctx context.Context, wd *watchdog, period time.Duration) {
	defer close(wd.done)

	conn, owned := h.dialWatchdog(ctx)
	defer func() {
		if conn != nil && owned {
			if err := conn.Close(); err != nil {
				h.opts.logger.Debug("warden: closing watchdog store failed", "handle", h.id, "error", err)
			}
		}
	}()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-wd.reset:
			h.mu.Lock()
			period = wd.period
			h.mu.Unlock()
			ticker.Reset(period)
			continue
		case <-ticker.C:
		}
		if conn == nil {
			if conn, owned = h.dialWatchdog(ctx); conn == nil {
				continue
			}
		}
		h.renew(ctx, conn)
	}
}

// dialWatchdog opens the dedicated renewal connection. A failed dial counts
// as a failed tick and is retried on the next one.
func (h *Handle) dialWatchdog(ctx context.Context) (store.Store, bool) {
	if h.dial == nil {
		return h.st, false
	}
	conn, err := h.dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			key := ""
			if cur := h.held.Load(); cur != nil {
				key = cur.key
			}
			h.renewFailed(key, err)
		}
		return nil, false
	}
	return conn, true
}

func (h *Handle) renew(ctx context.Context, conn store.Store) {
	cur := h.held.Load()
	if cur == nil {
		return
	}
	ctx, span := h.startSpan(ctx, "Watchdog.Renew", cur.key)
	defer span.End()

	n, err := evalInt(ctx, conn, renewScript, cur.key, cur.owner, cur.ttl.Milliseconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.renewFailed(cur.key, err)
		return
	}
	if n == 0 {
		metrics.RenewalLostCounter.Inc()
		h.opts.logger.Debug("warden: lock no longer owned, skipping renewal", "key", cur.key, "handle", h.id)
		return
	}
	metrics.RenewalCounter.Inc()
}

func (h *Handle) renewFailed(key string, err error) {
	metrics.RenewalFailureCounter.Inc()
	h.opts.logger.Warn("warden: lease renewal failed", "key", key, "handle", h.id, "error", err)
	if h.opts.onRenewError != nil {
		h.opts.onRenewError(key, err)
	}
}
