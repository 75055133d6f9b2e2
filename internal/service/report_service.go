package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
	"github.com/alabenkhlifa/opauto-core/pkg/export"
	"github.com/alabenkhlifa/opauto-core/pkg/jobs"
)

type approvalLister interface {
	Query(filter models.ApprovalFilter) []models.ApprovalRequest
	Stats() models.ApprovalStats
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportMetrics interface {
	RecordReportRendered(format models.ReportFormat, failed bool)
}

// ReportService renders filtered approval views into CSV or PDF documents
// through the background queue. Job records and rendered bytes live in
// memory only.
type ReportService struct {
	approvals approvalLister
	queue     jobDispatcher
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	metrics   reportMetrics
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.ReportJob
}

// ReportServiceOption configures the service.
type ReportServiceOption func(*ReportService)

// WithReportMetrics attaches a render outcome recorder.
func WithReportMetrics(metrics reportMetrics) ReportServiceOption {
	return func(s *ReportService) {
		s.metrics = metrics
	}
}

// WithReportClock overrides the time source, mainly for tests.
func WithReportClock(now func() time.Time) ReportServiceOption {
	return func(s *ReportService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewReportService constructs the report service.
func NewReportService(approvals approvalLister, queue jobDispatcher, logger *zap.Logger, opts ...ReportServiceOption) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ReportService{
		approvals: approvals,
		queue:     queue,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		jobs:      make(map[string]*models.ReportJob),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Enqueue registers a report job and hands it to the queue.
func (s *ReportService) Enqueue(format models.ReportFormat, filter models.ApprovalFilter, actor models.Identity) (*models.ReportJob, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format: %s", format))
	}

	job := &models.ReportJob{
		ID:          uuid.NewString(),
		Format:      format,
		Filter:      filter,
		Status:      models.ReportStatusQueued,
		RequestedBy: actor,
		CreatedAt:   s.now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(format)}); err != nil {
		s.fail(job.ID, "failed to enqueue report job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return s.snapshot(job.ID), nil
}

// Get returns the job's current state, including the rendered document once
// finished.
func (s *ReportService) Get(id string) (*models.ReportJob, error) {
	job := s.snapshot(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	return job, nil
}

// Handle is the queue handler rendering one job. A returned error lets the
// queue retry; the job is marked failed in between attempts so pollers are
// never left guessing.
func (s *ReportService) Handle(ctx context.Context, job jobs.Job) error {
	s.mu.RLock()
	rec, ok := s.jobs[job.ID]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("report job vanished before processing", zap.String("job_id", job.ID))
		return nil
	}

	dataset := s.buildDataset(rec.Filter)
	var (
		result []byte
		err    error
	)
	switch rec.Format {
	case models.ReportFormatCSV:
		result, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		result, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported report format: %s", rec.Format)
	}
	if err != nil {
		s.fail(job.ID, err.Error())
		if s.metrics != nil {
			s.metrics.RecordReportRendered(rec.Format, true)
		}
		return fmt.Errorf("render report %s: %w", job.ID, err)
	}

	now := s.now()
	s.mu.Lock()
	rec.Status = models.ReportStatusFinished
	rec.Result = result
	rec.FinishedAt = &now
	rec.ErrorMessage = ""
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReportRendered(rec.Format, false)
	}
	s.logger.Info("report rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(rec.Format)),
		zap.Int("bytes", len(result)),
	)
	return nil
}

func (s *ReportService) buildDataset(filter models.ApprovalFilter) export.Dataset {
	approvals := s.approvals.Query(filter)
	stats := s.approvals.Stats()

	headers := []string{"ID", "Type", "Title", "Priority", "Status", "Requested By", "Cost", "Due Date", "Created"}
	rows := make([]map[string]string, 0, len(approvals))
	for _, a := range approvals {
		cost := ""
		if a.EstimatedCost != nil {
			cost = a.EstimatedCost.StringFixed(2) + " " + a.Currency
		}
		due := ""
		if a.DueDate != nil {
			due = a.DueDate.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"ID":           a.ID,
			"Type":         string(a.Type),
			"Title":        a.Title,
			"Priority":     string(a.Priority),
			"Status":       string(a.Status),
			"Requested By": a.RequestedBy.Name,
			"Cost":         cost,
			"Due Date":     due,
			"Created":      a.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	return export.Dataset{
		Title:   "Approval Requests",
		Headers: headers,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("Matched: %d of %d total", len(approvals), stats.Total),
			fmt.Sprintf("Pending: %d, Overdue: %d", stats.Pending, stats.Overdue),
			fmt.Sprintf("Generated at %s", s.now().Format(time.RFC3339)),
		},
	}
}

func (s *ReportService) fail(id, message string) {
	now := s.now()
	s.mu.Lock()
	if rec, ok := s.jobs[id]; ok {
		rec.Status = models.ReportStatusFailed
		rec.ErrorMessage = message
		rec.FinishedAt = &now
	}
	s.mu.Unlock()
}

func (s *ReportService) snapshot(id string) *models.ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *rec
	cp.Result = append([]byte(nil), rec.Result...)
	if rec.FinishedAt != nil {
		at := *rec.FinishedAt
		cp.FinishedAt = &at
	}
	return &cp
}
