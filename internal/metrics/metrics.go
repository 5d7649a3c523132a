// Package metrics holds the Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	// Broadcast outcomes, labeled by campaign (prompt, summary).
	BroadcastsSentTotal   *prometheus.CounterVec
	BroadcastsFailedTotal *prometheus.CounterVec

	// Tracker forwards, labeled by outcome (ok, failed).
	ForwardsTotal *prometheus.CounterVec

	// Inbound DM dispositions (easter_egg, parse_failure, forwarded, forward_failed).
	IntakeMessagesTotal *prometheus.CounterVec

	// Reconciliation endpoint requests, labeled by result
	// (ok, unauthorized, bad_request, unresolved).
	NotifyRequestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		BroadcastsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrybot_broadcasts_sent_total",
				Help: "Direct messages delivered by campaign broadcasts",
			},
			[]string{"campaign"},
		),
		BroadcastsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrybot_broadcasts_failed_total",
				Help: "Direct messages that failed during campaign broadcasts",
			},
			[]string{"campaign"},
		),
		ForwardsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrybot_forwards_total",
				Help: "Submissions forwarded to the tracker by outcome",
			},
			[]string{"outcome"},
		),
		IntakeMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrybot_intake_messages_total",
				Help: "Inbound direct messages by disposition",
			},
			[]string{"disposition"},
		),
		NotifyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantrybot_notify_requests_total",
				Help: "Reconciliation callbacks by result",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.BroadcastsSentTotal,
		m.BroadcastsFailedTotal,
		m.ForwardsTotal,
		m.IntakeMessagesTotal,
		m.NotifyRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BroadcastOutcome records one per-recipient broadcast outcome.
func (m *Metrics) BroadcastOutcome(campaign string, delivered bool) {
	if delivered {
		m.BroadcastsSentTotal.WithLabelValues(campaign).Inc()
	} else {
		m.BroadcastsFailedTotal.WithLabelValues(campaign).Inc()
	}
}
