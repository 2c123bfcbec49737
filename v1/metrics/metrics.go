package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result labels used by AcquireCounter and ReleaseCounter.
const (
	ResultAcquired  = "acquired"
	ResultContended = "contended"
	ResultTimeout   = "timeout"
	ResultReleased  = "released"
	ResultPartial   = "partial"
	ResultNotHeld   = "not_held"
	ResultError     = "error"
)

var (
	// AcquireCounter tracks acquisition attempts by outcome.
	AcquireCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_acquire_total",
		Help: "Total number of lock acquisition attempts by result",
	}, []string{"result"})
	// ReleaseCounter tracks release calls by outcome.
	ReleaseCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_release_total",
		Help: "Total number of lock release calls by result",
	}, []string{"result"})
	// RenewalCounter tracks successful watchdog lease renewals.
	RenewalCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_watchdog_renewals_total",
		Help: "Total number of successful watchdog lease renewals",
	})
	// RenewalFailureCounter tracks watchdog ticks that failed to reach the store.
	RenewalFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_watchdog_failures_total",
		Help: "Total number of failed watchdog ticks",
	})
	// RenewalLostCounter tracks ticks that found the lock owned by someone else or gone.
	RenewalLostCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_watchdog_lost_total",
		Help: "Total number of watchdog ticks that found the lock no longer owned",
	})
	// WatchdogGauge reports the number of running watchdogs. It briefly dips
	// while a partial release restarts one.
	WatchdogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "warden_watchdogs_running",
		Help: "Current number of running lease watchdogs",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterLockMetrics registers the lock metrics on the provided registry.
func RegisterLockMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, ReleaseCounter, RenewalCounter,
		RenewalFailureCounter, RenewalLostCounter, WatchdogGauge)
}
