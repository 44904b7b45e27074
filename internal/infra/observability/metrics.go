package observability

import (
	"time"

	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Outcome labels for bank_operations_total.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected" // business rule refused the operation
	StatusError    = "error"
)

// Metrics holds all Prometheus metrics for the bank.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	accountsOpened    prometheus.Counter
	idempotentReplays prometheus.Counter

	operations []string
}

// Operations lists the service operations tracked in bank_operations_total.
var Operations = []string{
	"open_account", "list_accounts", "get_account",
	"deposit", "withdraw", "transfer",
	"statement", "search_accounts",
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_operation_duration_seconds",
				Help:    "Duration of bank operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_operations_total",
				Help: "Total bank operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		accountsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bank_accounts_opened_total",
				Help: "Total accounts opened.",
			},
		),
		idempotentReplays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bank_idempotent_replays_total",
				Help: "Total HTTP mutations answered from the idempotency cache.",
			},
		),
		operations: Operations,
	}

	// Every operation/outcome series exists from the start, exported as 0,
	// so reading them for the snapshot never adds series.
	for _, op := range m.operations {
		for _, status := range []string{StatusSuccess, StatusRejected, StatusError} {
			m.operationsTotal.WithLabelValues(op, status)
		}
	}
	return m
}

// RecordOperation records the duration and outcome of a bank operation.
func (m *Metrics) RecordOperation(operation, status string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// IncrAccountsOpened increments the opened-accounts counter.
func (m *Metrics) IncrAccountsOpened() {
	m.accountsOpened.Inc()
}

// IncrIdempotentReplay increments the idempotent replay counter.
func (m *Metrics) IncrIdempotentReplay() {
	m.idempotentReplays.Inc()
}

// GetOperationSnapshot returns the current counters, suitable for the
// GET /v1/metrics/operations endpoint.
func (m *Metrics) GetOperationSnapshot() *domain.OperationMetrics {
	ops := make(map[string]domain.OperationCount, len(m.operations))
	for _, name := range m.operations {
		c := domain.OperationCount{
			Success:  int64(getCounterValue(m.operationsTotal, name, StatusSuccess)),
			Rejected: int64(getCounterValue(m.operationsTotal, name, StatusRejected)),
			Error:    int64(getCounterValue(m.operationsTotal, name, StatusError)),
		}
		if total := c.Success + c.Rejected + c.Error; total > 0 {
			c.ErrorRate = float64(c.Rejected+c.Error) / float64(total)
		}
		ops[name] = c
	}

	return &domain.OperationMetrics{
		AccountsOpened:    int64(readCounter(m.accountsOpened)),
		IdempotentReplays: int64(readCounter(m.idempotentReplays)),
		Operations:        ops,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return readCounter(cv.WithLabelValues(labels...))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
