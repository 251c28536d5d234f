// Package metrics exposes the Prometheus instruments shared by the
// channel manager and the wire protocols: message counters, session
// gauges and FBDP credit histograms. Every instrument is registered
// against a caller-supplied *prometheus.Registry so embedding processes
// control exposition; nothing is force-registered on the global
// DefaultRegisterer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set bundles the instruments one ChannelManager needs. Construct one per
// manager with NewSet and pass it in at construction time; pass nil to
// disable metrics entirely (all methods on a nil *Set are no-ops).
type Set struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	SendErrors       *prometheus.CounterVec
	Sessions         *prometheus.GaugeVec
	BatchSize        *prometheus.HistogramVec
	SchedulerDepth   prometheus.Gauge
}

// NewSet creates and registers a Set on reg. namespace is typically the
// component's agent name, so multiple components in one process don't
// collide.
func NewSet(reg prometheus.Registerer, namespace string) *Set {
	s := &Set{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "messages_sent_total",
			Help: "Messages sent per channel.",
		}, []string{"channel"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "messages_received_total",
			Help: "Messages received per channel.",
		}, []string{"channel"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "send_errors_total",
			Help: "Send failures per channel, excluding EAGAIN.",
		}, []string{"channel"}),
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "channel", Name: "sessions",
			Help: "Open sessions per channel.",
		}, []string{"channel"}),
		BatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "fbdp", Name: "batch_size",
			Help:    "Negotiated FBDP batch sizes.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"pipe"}),
		SchedulerDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "microservice", Name: "scheduled_actions",
			Help: "Pending scheduled actions in the microservice event loop.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.MessagesSent, s.MessagesReceived, s.SendErrors,
			s.Sessions, s.BatchSize, s.SchedulerDepth)
	}
	return s
}

func (s *Set) SentInc(channel string) {
	if s == nil {
		return
	}
	s.MessagesSent.WithLabelValues(channel).Inc()
}

func (s *Set) ReceivedInc(channel string) {
	if s == nil {
		return
	}
	s.MessagesReceived.WithLabelValues(channel).Inc()
}

func (s *Set) SendErrorInc(channel string) {
	if s == nil {
		return
	}
	s.SendErrors.WithLabelValues(channel).Inc()
}

func (s *Set) SessionsSet(channel string, n int) {
	if s == nil {
		return
	}
	s.Sessions.WithLabelValues(channel).Set(float64(n))
}

func (s *Set) ObserveBatch(pipe string, n int) {
	if s == nil {
		return
	}
	s.BatchSize.WithLabelValues(pipe).Observe(float64(n))
}

func (s *Set) SchedulerDepthSet(n int) {
	if s == nil {
		return
	}
	s.SchedulerDepth.Set(float64(n))
}
