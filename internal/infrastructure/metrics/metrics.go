package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Document metrics
	DocumentOperations *prometheus.CounterVec
	DocumentDuration   *prometheus.HistogramVec

	// Ledger metrics
	LedgerPostings  *prometheus.CounterVec
	StockMovements  *prometheus.CounterVec
	Reconciliation  *prometheus.GaugeVec
	RestoreOutcomes *prometheus.CounterVec

	// Currency metrics
	RateLookups       *prometheus.CounterVec
	RateFetchDuration prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBRetries prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Activity metrics
	ActivitiesRecorded *prometheus.CounterVec
}

// New creates all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		DocumentOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_document_operations_total",
				Help: "Document lifecycle operations by kind, operation and outcome",
			},
			[]string{"kind", "operation", "outcome"},
		),
		DocumentDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradeledger_document_duration_seconds",
				Help:    "Duration of document lifecycle operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "operation"},
		),

		LedgerPostings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_ledger_postings_total",
				Help: "Balance changes applied by ledger kind",
			},
			[]string{"ledger_kind"},
		),
		StockMovements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_stock_movements_total",
				Help: "Stock adjustments by direction",
			},
			[]string{"direction"},
		),
		Reconciliation: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradeledger_reconciliation_mismatches",
				Help: "Parties whose balance disagrees with their movement journal",
			},
			[]string{"ledger_kind"},
		),
		RestoreOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_restores_total",
				Help: "Restore attempts by entity kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		RateLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_rate_lookups_total",
				Help: "Exchange rate resolutions by outcome",
			},
			[]string{"outcome"},
		),
		RateFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradeledger_rate_fetch_duration_seconds",
			Help:    "Duration of remote rate fetches",
			Buckets: prometheus.DefBuckets,
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradeledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		DBRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "tradeledger_db_retries_total",
			Help: "Transactions retried after deadlock or serialization failure",
		}),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),

		ActivitiesRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeledger_activities_total",
				Help: "Activity log entries by entity kind and action",
			},
			[]string{"kind", "action"},
		),
	}
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ObserveDocument records one lifecycle operation. Safe on a nil receiver.
func (m *Metrics) ObserveDocument(kind, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.DocumentOperations.WithLabelValues(kind, operation, outcome).Inc()
	m.DocumentDuration.WithLabelValues(kind, operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePosting(ledgerKind string) {
	if m == nil {
		return
	}
	m.LedgerPostings.WithLabelValues(ledgerKind).Inc()
}

func (m *Metrics) ObserveStock(delta int64) {
	if m == nil {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
	}
	m.StockMovements.WithLabelValues(direction).Inc()
}

// ObserveRate records how a rate was resolved: identity, cache, live,
// manual, stale or unavailable.
func (m *Metrics) ObserveRate(outcome string) {
	if m == nil {
		return
	}
	m.RateLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateFetch(started time.Time) {
	if m == nil {
		return
	}
	m.RateFetchDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveRestore(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.RestoreOutcomes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveActivity(kind, action string) {
	if m == nil {
		return
	}
	m.ActivitiesRecorded.WithLabelValues(kind, action).Inc()
}

func (m *Metrics) SetMismatches(ledgerKind string, n int) {
	if m == nil {
		return
	}
	m.Reconciliation.WithLabelValues(ledgerKind).Set(float64(n))
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.DBRetries.Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to bound label cardinality.
func (m *Metrics) ObserveHTTP(method, route string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveRateLimit(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(scope).Inc()
}
