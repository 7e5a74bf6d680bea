package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "coaching"

// BookingMetrics exposes counters/histograms for appointment workflows.
type BookingMetrics struct {
	workflowTotal   *prometheus.CounterVec
	workflowLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		workflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "workflow_total",
			Help:      "Appointment workflow runs by operation and outcome",
		}, []string{"operation", "outcome"}),
		workflowLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "workflow_latency_seconds",
			Help:      "Latency of appointment workflows including notification fan-out",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.workflowTotal, m.workflowLatency)
	return m
}

// ObserveWorkflow records one run. outcome is "ok", "warning", or an error kind.
func (m *BookingMetrics) ObserveWorkflow(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.workflowTotal.WithLabelValues(operation, outcome).Inc()
	m.workflowLatency.WithLabelValues(operation).Observe(seconds)
}

// NotificationMetrics tracks email deliveries per provider.
type NotificationMetrics struct {
	sentTotal   *prometheus.CounterVec
	sendLatency *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email deliveries by provider and status",
		}, []string{"provider", "status"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "send_latency_seconds",
			Help:      "Latency of provider handoff",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal, m.sendLatency)
	return m
}

func (m *NotificationMetrics) ObserveSend(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "sent"
	}
	m.sentTotal.WithLabelValues(provider, status).Inc()
	m.sendLatency.WithLabelValues(provider).Observe(seconds)
}

// ProbeMetrics counts auth/role probe outcomes.
type ProbeMetrics struct {
	probeTotal *prometheus.CounterVec
}

func NewProbeMetrics(reg prometheus.Registerer) *ProbeMetrics {
	m := &ProbeMetrics{
		probeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "probe_total",
			Help:      "Auth/role probes by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.probeTotal)
	return m
}

// ObserveProbe records one probe. outcome is one of "admin", "member",
// "auth_failed", "role_failed", or "locked".
func (m *ProbeMetrics) ObserveProbe(outcome string) {
	if m == nil {
		return
	}
	m.probeTotal.WithLabelValues(outcome).Inc()
}
