package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/bank/internal/errs"
)

// Metrics counts events and failed operations. It is a Sink for the former;
// services call Failure for the latter.
type Metrics struct {
	events   *prometheus.CounterVec
	entries  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the bank counters with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "events_total",
			Help:      "Registry events by type",
		}, []string{"type"}),
		entries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries recorded by kind and account variant",
		}, []string{"kind", "variant"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "operation_failures_total",
			Help:      "Rejected operations by operation and error code",
		}, []string{"op", "code"}),
	}
}

func (m *Metrics) Publish(_ context.Context, e Event) error {
	m.events.WithLabelValues(string(e.Type)).Inc()
	if e.Entry != nil {
		m.entries.WithLabelValues(e.Entry.Kind, e.Variant).Inc()
	}
	return nil
}

// Failure counts a rejected operation under its error code.
func (m *Metrics) Failure(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(op, errs.Code(err)).Inc()
}
