package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alabenkhlifa/opauto-core/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for store
// operations.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	approvalsCreated *prometheus.CounterVec
	approvalActions  *prometheus.CounterVec
	approvalsDeleted prometheus.Counter
	pendingGauge     prometheus.Gauge
	overdueGauge     prometheus.Gauge
	statsScan        prometheus.Histogram
	reportsRendered  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	approvalsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "approvals_created_total",
		Help: "Total approval requests created",
	}, []string{"type"})

	approvalActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_actions_total",
		Help: "Total reviewer actions processed",
	}, []string{"action"})

	approvalsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approvals_deleted_total",
		Help: "Total approval requests deleted",
	})

	pendingGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "approvals_pending",
		Help: "Pending approval requests at last stats scan",
	})

	overdueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "approvals_overdue",
		Help: "Overdue approval requests at last stats scan",
	})

	statsScan := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "approval_stats_scan_seconds",
		Help:    "Duration of full-collection stats scans",
		Buckets: prometheus.DefBuckets,
	})

	reportsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_rendered_total",
		Help: "Total approval reports rendered by format and outcome",
	}, []string{"format", "outcome"})

	registry.MustRegister(approvalsCreated, approvalActions, approvalsDeleted, pendingGauge, overdueGauge, statsScan, reportsRendered)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		approvalsCreated: approvalsCreated,
		approvalActions:  approvalActions,
		approvalsDeleted: approvalsDeleted,
		pendingGauge:     pendingGauge,
		overdueGauge:     overdueGauge,
		statsScan:        statsScan,
		reportsRendered:  reportsRendered,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RecordApprovalCreated counts a new request by type.
func (m *MetricsService) RecordApprovalCreated(approvalType models.ApprovalType) {
	if m == nil {
		return
	}
	m.approvalsCreated.WithLabelValues(string(approvalType)).Inc()
}

// RecordApprovalAction counts a reviewer decision.
func (m *MetricsService) RecordApprovalAction(action models.ApprovalAction) {
	if m == nil {
		return
	}
	m.approvalActions.WithLabelValues(string(action)).Inc()
}

// RecordApprovalDeleted counts removed requests.
func (m *MetricsService) RecordApprovalDeleted(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.approvalsDeleted.Add(float64(count))
}

// SetApprovalGauges publishes the latest pending/overdue counts.
func (m *MetricsService) SetApprovalGauges(pending, overdue int) {
	if m == nil {
		return
	}
	m.pendingGauge.Set(float64(pending))
	m.overdueGauge.Set(float64(overdue))
}

// ObserveStatsScan records the duration of a stats recomputation.
func (m *MetricsService) ObserveStatsScan(duration time.Duration) {
	if m == nil {
		return
	}
	m.statsScan.Observe(duration.Seconds())
}

// RecordReportRendered counts report outcomes per format.
func (m *MetricsService) RecordReportRendered(format models.ReportFormat, failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	m.reportsRendered.WithLabelValues(string(format), outcome).Inc()
}
