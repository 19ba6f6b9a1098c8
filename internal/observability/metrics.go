// Package observability exposes prometheus metrics and a health endpoint.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/m3rciful/playlistbot/core/telegram/middleware"
	"github.com/m3rciful/playlistbot/internal/playlistbot"
)

// Metrics groups the instruments of the bot on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	FlowEvents   *prometheus.CounterVec
	FlowDuration *prometheus.HistogramVec
	Telegram     *middleware.Metrics
}

// NewMetrics registers all instruments under namespace, including the Go
// runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		FlowEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "events_total",
			Help:      "Dispatched events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FlowDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "event_duration_seconds",
			Help:      "Time spent in the state machine per event, including storage calls.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		Telegram: middleware.NewMetrics(reg, namespace),
	}
}

var _ playlistbot.Observer = (*Metrics)(nil)

// ObserveEvent records one dispatched event.
func (m *Metrics) ObserveEvent(kind playlistbot.EventKind, outcome playlistbot.ResultKind, took time.Duration) {
	m.FlowEvents.WithLabelValues(string(kind), outcome.String()).Inc()
	m.FlowDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// TrackSessions exposes the number of in-memory sessions as a gauge.
func (m *Metrics) TrackSessions(namespace string, count func() int) {
	promauto.With(m.Registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Users holding an in-memory session.",
	}, func() float64 { return float64(count()) })
}
