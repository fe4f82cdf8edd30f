package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Funds operation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Expiry sources
const (
	ExpiryLazy      = "lazy"
	ExpiryScheduled = "scheduled"
)

// Metrics holds the Prometheus collectors of the card service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	fundsOps         *prometheus.CounterVec
	fundsOpDuration  *prometheus.HistogramVec
	cardsIssued      prometheus.Counter
	cardsExpired     *prometheus.CounterVec
	numberCollisions prometheus.Counter
}

// New registers all collectors in a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		fundsOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cards_funds_operations_total",
				Help: "Funds operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		fundsOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_cards_funds_operation_duration_seconds",
				Help:    "Duration of funds operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cardsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_cards_issued_total",
			Help: "Cards issued.",
		}),
		cardsExpired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cards_expired_total",
				Help: "Cards moved to EXPIRED, by source.",
			},
			[]string{"source"},
		),
		numberCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_cards_number_collisions_total",
			Help: "Generated card numbers rejected because they were already taken.",
		}),
	}
}

// ObserveFundsOperation records one funds operation
func (m *Metrics) ObserveFundsOperation(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fundsOps.WithLabelValues(operation, outcome).Inc()
	m.fundsOpDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncCardsIssued counts an issued card
func (m *Metrics) IncCardsIssued() {
	if m == nil {
		return
	}
	m.cardsIssued.Inc()
}

// AddCardsExpired counts cards moved to EXPIRED
func (m *Metrics) AddCardsExpired(source string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cardsExpired.WithLabelValues(source).Add(float64(n))
}

// IncNumberCollision counts a generated card number that was already taken
func (m *Metrics) IncNumberCollision() {
	if m == nil {
		return
	}
	m.numberCollisions.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
