// Package metrics exposes Prometheus metrics for verification transitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kyc-ledger/internal/domain"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	// Accepted transitions by event and resulting status
	Transitions *prometheus.CounterVec

	// Refused operations by event and error code
	Failures *prometheus.CounterVec

	// Materialized records per status
	Records *prometheus.GaugeVec
}

// New registers all KYC metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_transitions_total",
			Help: "Accepted verification transitions by event and resulting status",
		}, []string{"event", "to"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_failures_total",
			Help: "Refused verification operations by event and error code",
		}, []string{"event", "code"}), // code: domain.ErrorCode, "internal" otherwise

		Records: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kyc_records",
			Help: "Verification records currently held per status",
		}, []string{"status"}),
	}
}

// ObserveTransition counts an accepted transition and moves one record
// between the status gauges.
func (m *Metrics) ObserveTransition(event domain.VerificationEvent, from, to domain.VerificationStatus) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(event), string(to)).Inc()
	if from != domain.StatusNotSubmitted {
		m.Records.WithLabelValues(string(from)).Dec()
	}
	m.Records.WithLabelValues(string(to)).Inc()
}

// ObserveFailure counts a refused operation. Errors without a domain code are
// counted as "internal".
func (m *Metrics) ObserveFailure(event domain.VerificationEvent, err error) {
	if m == nil || err == nil {
		return
	}
	code := domain.ErrorCode(err)
	if code == "" {
		code = "internal"
	}
	m.Failures.WithLabelValues(string(event), code).Inc()
}

// SetRecordCounts resets the status gauges, typically after loading the ledger.
func (m *Metrics) SetRecordCounts(counts map[domain.VerificationStatus]int) {
	if m == nil {
		return
	}
	for st, n := range counts {
		m.Records.WithLabelValues(string(st)).Set(float64(n))
	}
}
