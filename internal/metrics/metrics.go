// Package metrics holds the Prometheus collectors for the session gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics groups the collectors so tests can register them on a private registry.
type Metrics struct {
	// RefreshTotal counts outbound refresh grants by outcome.
	RefreshTotal *prometheus.CounterVec
	// RefreshWaiters is the number of callers currently waiting on a refresh flight.
	RefreshWaiters prometheus.Gauge
	// RefreshSharedTotal counts callers that received another caller's refresh result.
	RefreshSharedTotal prometheus.Counter
	// TerminalTotal counts token sets that entered a failed state, by error code.
	TerminalTotal *prometheus.CounterVec
	// RevocationTotal counts sign-out revocations by outcome.
	RevocationTotal *prometheus.CounterVec
	// SignInTotal counts sign-ins by provider and outcome.
	SignInTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireai_gateway_token_refresh_total",
			Help: "The total number of refresh grants sent to the identity provider",
		}, []string{"outcome"}),
		RefreshWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireai_gateway_token_refresh_waiters",
			Help: "Callers currently waiting for a token refresh",
		}),
		RefreshSharedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hireai_gateway_token_refresh_shared_total",
			Help: "Callers that reused an in-flight refresh instead of starting one",
		}),
		TerminalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireai_gateway_token_terminal_total",
			Help: "Token sets marked with a terminal error",
		}, []string{"error"}),
		RevocationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireai_gateway_token_revocation_total",
			Help: "Refresh token revocations issued on sign-out",
		}, []string{"outcome"}),
		SignInTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hireai_gateway_signin_total",
			Help: "Sign-in attempts by provider",
		}, []string{"provider", "outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RefreshTotal,
		m.RefreshWaiters,
		m.RefreshSharedTotal,
		m.TerminalTotal,
		m.RevocationTotal,
		m.SignInTotal,
	)
	return m
}

// NewDefault registers on a fresh registry that also carries the Go and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
