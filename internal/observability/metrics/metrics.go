package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level Prometheus instruments.
type Metrics struct {
	invoicesMinted      *prometheus.CounterVec
	invoiceStatusMoves  *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	notificationsDedup  *prometheus.CounterVec
	gatewayRequests     *prometheus.CounterVec
	jobRuns             *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
}

// New registers the application instruments on the given registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		invoicesMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_invoices_minted_total",
			Help: "Invoices created, labeled by billing period.",
		}, []string{"period"}),
		invoiceStatusMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_invoice_status_transitions_total",
			Help: "Invoice status transitions, labeled by target status.",
		}, []string{"to_status"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_notifications_sent_total",
			Help: "Notifications confirmed sent, labeled by event type.",
		}, []string{"event_type"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_notifications_failed_total",
			Help: "Notification sends that failed, labeled by event type and reason.",
		}, []string{"event_type", "reason"}),
		notificationsDedup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_notifications_deduplicated_total",
			Help: "Notification sends skipped because a log entry already existed.",
		}, []string{"event_type"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_gateway_requests_total",
			Help: "WhatsApp gateway calls, labeled by operation and outcome.",
		}, []string{"operation", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_job_runs_total",
			Help: "Scheduler job executions, labeled by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_job_duration_seconds",
			Help:    "Scheduler job execution duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	collectors := []prometheus.Collector{
		m.invoicesMinted,
		m.invoiceStatusMoves,
		m.notificationsSent,
		m.notificationsFailed,
		m.notificationsDedup,
		m.gatewayRequests,
		m.jobRuns,
		m.jobDuration,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordInvoiceMinted increments the minted invoice count for a billing period.
func (m *Metrics) RecordInvoiceMinted(period string) {
	if m == nil {
		return
	}
	m.invoicesMinted.WithLabelValues(normalizeLabel(period)).Inc()
}

// RecordStatusTransition increments the status transition count.
func (m *Metrics) RecordStatusTransition(toStatus string) {
	if m == nil {
		return
	}
	m.invoiceStatusMoves.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// RecordNotificationSent increments the confirmed-send count.
func (m *Metrics) RecordNotificationSent(eventType string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// RecordNotificationFailed increments the failed-send count.
func (m *Metrics) RecordNotificationFailed(eventType, reason string) {
	if m == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

// RecordNotificationDeduplicated increments the skipped-duplicate count.
func (m *Metrics) RecordNotificationDeduplicated(eventType string) {
	if m == nil {
		return
	}
	m.notificationsDedup.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// RecordGatewayRequest increments the gateway call count.
func (m *Metrics) RecordGatewayRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// RecordJobRun increments the job execution count.
func (m *Metrics) RecordJobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Inc()
}

// ObserveJobDuration records the job execution duration in seconds.
func (m *Metrics) ObserveJobDuration(job string, seconds float64) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(seconds)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
