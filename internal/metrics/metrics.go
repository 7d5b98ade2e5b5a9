package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arremate_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arremate_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SessionTransitions counts session operations by outcome (ok, conflict, ...)
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arremate_session_transitions_total",
		Help: "Work session operations by operation and outcome",
	}, []string{"operation", "outcome"})

	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arremate_ledger_entries_total",
		Help: "Finishing ledger rows written by kind",
	}, []string{"kind"})

	LedgerUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arremate_ledger_units_total",
		Help: "Units written to the finishing ledger by kind",
	}, []string{"kind"})

	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arremate_assignment_lock_conflicts_total",
		Help: "Start or loss requests rejected because the product/variant lock was held",
	})

	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arremate_alerts_emitted_total",
		Help: "Alerts emitted by type",
	}, []string{"type"})

	AlertSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arremate_alert_subscribers",
		Help: "Connected websocket alert subscribers",
	})
)
