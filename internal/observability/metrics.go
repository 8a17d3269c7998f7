package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// API metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsd_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsd_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsd_active_requests",
		Help: "Current in-flight requests",
	})

	// Provisioner metrics
	ProvisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsd_provision_total",
		Help: "Provision attempt count by outcome",
	}, []string{"provider", "outcome"})

	ProvisionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsd_provision_duration_seconds",
		Help:    "Provider provision call duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"provider"})

	PendingWorkspaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsd_pending_workspaces",
		Help: "Workspaces awaiting provisioning at last poll",
	})

	WorkspaceStateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsd_workspace_state_transitions_total",
		Help: "Workspace state transition count",
	}, []string{"from", "to"})

	// Janitor metrics
	JanitorReapTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsd_janitor_reap_total",
		Help: "Expired workspace deletions by outcome",
	}, []string{"outcome"})

	TeardownFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsd_teardown_fail_total",
		Help: "Best-effort teardowns that errored (resource may leak)",
	})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests,
		ProvisionTotal, ProvisionDuration, PendingWorkspaces,
		WorkspaceStateTransitions,
		JanitorReapTotal, TeardownFailTotal,
	)
}
