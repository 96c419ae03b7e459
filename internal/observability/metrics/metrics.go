package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the WhatsApp conversation pipeline.
type BotMetrics struct {
	inboundTotal     *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	flowTotal        *prometheus.CounterVec
	exportTotal      *prometheus.CounterVec
	assistantTotal   *prometheus.CounterVec
	assistantLatency *prometheus.HistogramVec
	webhookLatency   *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muelita",
			Subsystem: "whatsapp",
			Name:      "inbound_events_total",
			Help:      "Total inbound WhatsApp webhook events",
		}, []string{"event_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muelita",
			Subsystem: "whatsapp",
			Name:      "outbound_total",
			Help:      "Total outbound Graph API sends by message kind",
		}, []string{"kind", "status"}),
		flowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muelita",
			Subsystem: "conversation",
			Name:      "flow_transitions_total",
			Help:      "Conversation flow transitions",
		}, []string{"flow", "step"}),
		exportTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muelita",
			Subsystem: "appointments",
			Name:      "export_total",
			Help:      "Appointment request exports by sink and status",
		}, []string{"sink", "status"}),
		assistantTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muelita",
			Subsystem: "assistant",
			Name:      "completions_total",
			Help:      "Assistant completions by outcome",
		}, []string{"outcome"}),
		assistantLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "muelita",
			Subsystem: "assistant",
			Name:      "latency_seconds",
			Help:      "Latency of assistant completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "muelita",
			Subsystem: "whatsapp",
			Name:      "event_latency_seconds",
			Help:      "Latency of inbound event processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inboundTotal,
		m.outboundTotal,
		m.flowTotal,
		m.exportTotal,
		m.assistantTotal,
		m.assistantLatency,
		m.webhookLatency,
	)
	return m
}

func (m *BotMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *BotMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

// ObserveFlow counts a step entered (or "completed") by a conversation flow.
func (m *BotMetrics) ObserveFlow(flow, step string) {
	if m == nil {
		return
	}
	m.flowTotal.WithLabelValues(flow, step).Inc()
}

func (m *BotMetrics) ObserveExport(sink, status string) {
	if m == nil {
		return
	}
	m.exportTotal.WithLabelValues(sink, status).Inc()
}

func (m *BotMetrics) ObserveAssistant(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(outcome).Inc()
	m.assistantLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BotMetrics) ObserveEventLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
