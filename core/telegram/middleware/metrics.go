package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	tele "gopkg.in/telebot.v4"
)

// Metrics holds the update-level prometheus instruments.
type Metrics struct {
	Updates  *prometheus.CounterVec
	Sent     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers update instruments on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Updates received, by kind.",
		}, []string{"kind"}),
		Sent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "messages_sent_total",
			Help:      "Outgoing messages, by whether an inline keyboard was attached.",
		}, []string{"keyboard"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

// metricsContext wraps tele.Context to count sent messages and detect keyboard usage.
type metricsContext struct {
	tele.Context
	m *Metrics
}

func (mc metricsContext) count(withKeyboard bool) {
	n, _ := mc.Get("messages").(int)
	mc.Set("messages", n+1)
	if withKeyboard {
		mc.Set("kb", true)
	}
	if mc.m != nil {
		mc.m.Sent.WithLabelValues(strconv.FormatBool(withKeyboard)).Inc()
	}
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (mc metricsContext) Send(what any, opts ...any) error {
	err := mc.Context.Send(what, opts...)
	if err == nil {
		mc.count(hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (mc metricsContext) Reply(what any, opts ...any) error {
	err := mc.Context.Reply(what, opts...)
	if err == nil {
		mc.count(hasKeyboard(opts))
	}
	return err
}

// Middleware instruments context to track messages count and keyboard usage,
// and records per-kind update counts and latency. A nil receiver only keeps
// the in-context counters.
func (m *Metrics) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("messages", 0)
		c.Set("kb", false)
		if m == nil {
			return next(metricsContext{Context: c})
		}
		kind := UpdateKind(c.Update())
		m.Updates.WithLabelValues(kind).Inc()
		start := time.Now()
		err := next(metricsContext{Context: c, m: m})
		m.Duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		return err
	}
}

// MessageMetricsMiddleware keeps the in-context message counters without prometheus.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	var m *Metrics
	return m.Middleware(next)
}

// GetCounters returns how many messages the handler sent and whether any
// carried an inline keyboard.
func GetCounters(c tele.Context) (messages int, keyboard bool) {
	messages, _ = c.Get("messages").(int)
	keyboard, _ = c.Get("kb").(bool)
	return messages, keyboard
}
