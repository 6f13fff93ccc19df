package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/workspace-api/internal/events"
)

// Metrics owns the service's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
	emails   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workspace_api_calls_total",
			Help: "Number of API calls",
		}, []string{"action", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workspace_api_call_duration_seconds",
			Help:    "API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workspace_domain_events_total",
			Help: "Number of domain events published",
		}, []string{"event"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workspace_invite_emails_total",
			Help: "Invite emails by delivery outcome",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.calls, m.latency, m.events, m.emails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one handled request. action is the route template.
func (m *Metrics) ObserveCall(action string, status int, elapsed time.Duration) {
	m.calls.WithLabelValues(action, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveEmail counts a mail delivery outcome: sent, failed or dropped.
func (m *Metrics) ObserveEmail(outcome string) {
	m.emails.WithLabelValues(outcome).Inc()
}

// EventHandler counts every event published on the bus.
func (m *Metrics) EventHandler() events.Handler {
	return func(_ context.Context, event events.Event) error {
		m.events.WithLabelValues(string(event.Name)).Inc()
		return nil
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
