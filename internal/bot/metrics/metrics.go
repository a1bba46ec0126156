// Package metrics registers the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brrbot"

// Command outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeDenied      = "denied"
	OutcomeUnknown     = "unknown_command"
	OutcomeError       = "error"
	OutcomeReplyFailed = "reply_failed"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Slash command invocations by command and outcome.",
	}, []string{"command", "outcome"})

	remoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "autobrr_requests_total",
		Help:      "Requests sent to the autobrr API by method and status code (0 for transport failures).",
	}, []string{"method", "code"})

	reauthenticationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "autobrr_reauthentications_total",
		Help:      "Re-authentication attempts triggered by an unauthorized response.",
	})
)

// ObserveCommand counts one dispatched invocation.
func ObserveCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// ObserveRemoteRequest counts one request to autobrr.
func ObserveRemoteRequest(method string, code int) {
	remoteRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveReauthentication counts one 401-triggered login.
func ObserveReauthentication() {
	reauthenticationsTotal.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CommandCounter returns the counter for one command and outcome.
func CommandCounter(command, outcome string) prometheus.Counter {
	return commandsTotal.WithLabelValues(command, outcome)
}

// ReauthenticationCounter returns the counter of 401-triggered logins.
func ReauthenticationCounter() prometheus.Counter {
	return reauthenticationsTotal
}
