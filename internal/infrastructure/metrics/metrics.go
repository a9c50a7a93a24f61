package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Ledger operation metrics
	Operations        *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationAmount   *prometheus.HistogramVec
	IdempotentReplays *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
	OutboxFailed    *prometheus.CounterVec
	OutboxPurged    prometheus.Counter

	// Ops HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_operations_total",
				Help: "Ledger operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_operation_errors_total",
				Help: "Rejected ledger operations by error kind",
			},
			[]string{"operation", "error_type"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_operation_amount",
				Help:    "Amounts of committed ledger operations",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"operation"},
		),
		IdempotentReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_idempotent_replays_total",
				Help: "Operations answered from a stored result",
			},
			[]string{"operation"},
		),

		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_outbox_published_total",
				Help: "Outbox events published",
			},
			[]string{"event_type"},
		),
		OutboxFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_outbox_failed_total",
				Help: "Outbox events that failed to publish",
			},
			[]string{"event_type"},
		),
		OutboxPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_outbox_purged_total",
			Help: "Published outbox events deleted after retention",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveOperation implements usecase.OperationObserver.
func (m *Metrics) ObserveOperation(op domain.OperationType, amount decimal.Decimal, duration time.Duration, err error) {
	if m == nil {
		return
	}

	operation := string(op)
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if err != nil {
		m.Operations.WithLabelValues(operation, "error").Inc()
		m.OperationErrors.WithLabelValues(operation, ErrorType(err)).Inc()
		return
	}

	m.Operations.WithLabelValues(operation, "success").Inc()
	m.OperationAmount.WithLabelValues(operation).Observe(amount.InexactFloat64())
}

// ObserveReplay implements usecase.OperationObserver.
func (m *Metrics) ObserveReplay(op domain.OperationType) {
	if m == nil {
		return
	}
	m.IdempotentReplays.WithLabelValues(string(op)).Inc()
}

// EventPublished counts a delivered outbox event.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(eventType).Inc()
}

// EventFailed counts an outbox event that could not be delivered.
func (m *Metrics) EventFailed(eventType string) {
	if m == nil {
		return
	}
	m.OutboxFailed.WithLabelValues(eventType).Inc()
}

// EventsPurged counts published events removed after retention.
func (m *Metrics) EventsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.OutboxPurged.Add(float64(n))
}

var errorTypes = []struct {
	err   error
	label string
}{
	{domain.ErrInsufficientFunds, "insufficient_funds"},
	{domain.ErrAccountNotFound, "account_not_found"},
	{domain.ErrAccountClosed, "account_closed"},
	{domain.ErrInvalidAmount, "invalid_amount"},
	{domain.ErrSameAccount, "same_account"},
	{domain.ErrInvalidIdempotencyKey, "invalid_idempotency_key"},
	{domain.ErrOperationInProgress, "operation_in_progress"},
	{domain.ErrIdempotencyKeyReused, "idempotency_key_reused"},
	{domain.ErrTimeout, "timeout"},
	{domain.ErrUnavailable, "unavailable"},
}

// ErrorType maps an error to a low-cardinality label.
func ErrorType(err error) string {
	for _, et := range errorTypes {
		if errors.Is(err, et.err) {
			return et.label
		}
	}
	return "other"
}
