// Package metrics holds the Prometheus collectors of the service. Collectors
// register on the default registry and are exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "peersync"

var (
	// PropagationsTotal counts terminal replication outcomes partitioned by
	// entity, operation and outcome (ok, skipped, failed, local_failed).
	PropagationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "replication",
		Name:      "mutations_total",
		Help:      "Number of replicated mutations partitioned by entity, op and outcome",
	}, []string{"entity", "op", "outcome"})

	// InjectedFailuresTotal counts failures forced by the fault injector.
	InjectedFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "replication",
		Name:      "injected_failures_total",
		Help:      "Number of propagations failed on purpose by the fault injector",
	})

	// PeerAttemptsTotal counts outbound peer HTTP attempts partitioned by
	// method and result class (2xx, 4xx, 5xx, error).
	PeerAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "attempts_total",
		Help:      "Number of outbound peer requests including retries",
	}, []string{"method", "result"})

	// PeerCallDuration stores the time spent in one logical peer call,
	// retries and backoff included.
	PeerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "peer",
		Name:      "call_duration_seconds",
		Help:      "Peer call time including retries, partitioned by method",
	}, []string{"method"})

	// HTTPRequestDuration stores the processing time of inbound requests
	// partitioned by route template, method and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Inbound request processing time partitioned by route, method and status",
	}, []string{"route", "method", "status"})
)

// ResultClass buckets an HTTP status for PeerAttemptsTotal. Status 0 means
// no response was received.
func ResultClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
