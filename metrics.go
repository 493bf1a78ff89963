package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// Metrics records authentication outcomes and identity lookup latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	lookups  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil. Collectors already registered under the same name are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of bearer authentication attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		lookups: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_identity_lookup_duration_seconds",
				Help:    "External identity lookup duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	if reg != nil {
		m.attempts = register(reg, m.attempts)
		m.lookups = register(reg, m.lookups)
	}

	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observeResult(strategy Strategy, r Result) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if f, ok := Failed(r); ok {
		outcome = strings.ToLower(string(f.Kind))
	}
	m.attempts.WithLabelValues(string(strategy), outcome).Inc()
}

func (m *Metrics) observeLookup(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
