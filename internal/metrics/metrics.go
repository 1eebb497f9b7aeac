package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fastygo/accounts/domain"
)

var storeBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3}

// Metrics tracks cache outcomes and store latency.
type Metrics struct {
	CacheOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
	StoreErrors   *prometheus.CounterVec
}

// New registers every collector with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_cache_operations_total",
			Help: "Cache operations by operation and outcome (ok, miss, degraded)",
		}, []string{"op", "status"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accounts_store_duration_seconds",
			Help:    "Duration of user store calls",
			Buckets: storeBuckets,
		}, []string{"op"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_store_errors_total",
			Help: "User store calls that failed, by error code",
		}, []string{"op", "code"}),
	}
}

// ObserveCache implements the Redis cache observer.
func (m *Metrics) ObserveCache(op string, status domain.CacheStatus) {
	m.CacheOps.WithLabelValues(op, status.String()).Inc()
}

// ObserveStore records one store call started at start.
func (m *Metrics) ObserveStore(op string, start time.Time, err error) {
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op, errorCode(err)).Inc()
}

// RegisterOutboxDepth exposes the number of pending invalidations.
func RegisterOutboxDepth(reg prometheus.Registerer, size func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "accounts_outbox_pending",
		Help: "Cache invalidations waiting for the cache to come back",
	}, func() float64 { return float64(size()) })
}

func errorCode(err error) string {
	for _, code := range []domain.ErrorCode{
		domain.ErrCodeNotFound,
		domain.ErrCodeConflict,
		domain.ErrCodeInvalid,
		domain.ErrCodePersistence,
	} {
		if domain.IsDomainError(err, code) {
			return string(code)
		}
	}
	return string(domain.ErrCodeInternal)
}
