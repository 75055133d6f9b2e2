package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	"github.com/alabenkhlifa/opauto-core/internal/store"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

type approvalStore interface {
	Create(req *models.ApprovalRequest, actor models.Identity) (*models.ApprovalRequest, error)
	GetByID(id string) (*models.ApprovalRequest, error)
	Query(filter models.ApprovalFilter) []models.ApprovalRequest
	ProcessAction(id string, action models.ApprovalAction, note *store.DecisionNote, actor models.Identity) (*models.ApprovalRequest, error)
	AddComment(id, content string, internal bool, actor models.Identity) (*models.ApprovalRequest, error)
	Delete(id string) bool
	BulkAction(ids []string, action models.ApprovalAction, actor models.Identity) error
	Stats() models.ApprovalStats
	OpenCount() int
}

type limitGate interface {
	Allow(resource models.LimitedResource, current int) error
}

type approvalMetrics interface {
	RecordApprovalCreated(approvalType models.ApprovalType)
	RecordApprovalAction(action models.ApprovalAction)
	RecordApprovalDeleted(count int)
	SetApprovalGauges(pending, overdue int)
	ObserveStatsScan(duration time.Duration)
}

// CreateApprovalRequest is the boundary payload for submitting a request.
type CreateApprovalRequest struct {
	Type          models.ApprovalType     `json:"type" validate:"required,oneof=part_purchase service_approval customer_credit overtime_request expense_claim discount_request refund_request other"`
	Title         string                  `json:"title" validate:"required"`
	Description   string                  `json:"description"`
	Priority      models.ApprovalPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Currency      string                  `json:"currency" validate:"omitempty,len=3"`
	EstimatedCost *decimal.Decimal        `json:"estimated_cost,omitempty"`
	RelatedEntity *models.EntityRef       `json:"related_entity,omitempty"`
	DueDate       *time.Time              `json:"due_date,omitempty"`
}

// ApprovalService fronts the approval store with boundary validation, tier
// gating, metrics, and logging. State transitions themselves live in the
// store.
type ApprovalService struct {
	store           approvalStore
	gate            limitGate
	metrics         approvalMetrics
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCurrency string
	maxBulkSize     int
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalMetrics attaches an operation metrics recorder.
func WithApprovalMetrics(metrics approvalMetrics) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.metrics = metrics
	}
}

// WithDefaultCurrency overrides the currency stamped on requests that omit one.
func WithDefaultCurrency(currency string) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if currency != "" {
			s.defaultCurrency = currency
		}
	}
}

// WithMaxBulkSize caps how many ids one bulk call may carry.
func WithMaxBulkSize(size int) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if size > 0 {
			s.maxBulkSize = size
		}
	}
}

// NewApprovalService constructs the service with defaults.
func NewApprovalService(st approvalStore, gate limitGate, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		store:           st,
		gate:            gate,
		validator:       validator.New(),
		logger:          logger,
		defaultCurrency: "TND",
		maxBulkSize:     100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create validates the payload and submits a new pending request on behalf of
// the acting identity.
func (s *ApprovalService) Create(req CreateApprovalRequest, actor models.Identity) (*models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	if s.gate != nil {
		if err := s.gate.Allow(models.ResourceOpenApprovals, s.store.OpenCount()); err != nil {
			return nil, err
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	approval, err := s.store.Create(&models.ApprovalRequest{
		Type:          req.Type,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Priority:      req.Priority,
		Currency:      currency,
		EstimatedCost: req.EstimatedCost,
		RelatedEntity: req.RelatedEntity,
		DueDate:       req.DueDate,
	}, actor)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordApprovalCreated(approval.Type)
	}
	s.logger.Info("approval created",
		zap.String("id", approval.ID),
		zap.String("type", string(approval.Type)),
		zap.String("priority", string(approval.Priority)),
		zap.String("requested_by", actor.ID),
	)
	return approval, nil
}

// Get returns one approval by id.
func (s *ApprovalService) Get(id string) (*models.ApprovalRequest, error) {
	return s.store.GetByID(id)
}

// Query returns the filtered view in store order.
func (s *ApprovalService) Query(filter models.ApprovalFilter) []models.ApprovalRequest {
	return s.store.Query(filter)
}

// ProcessAction applies a reviewer decision with an optional note. The note's
// visibility is an explicit caller choice, independent of the action.
func (s *ApprovalService) ProcessAction(id string, action models.ApprovalAction, note *store.DecisionNote, actor models.Identity) (*models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	approval, err := s.store.ProcessAction(id, action, note, actor)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordApprovalAction(action)
	}
	s.logger.Info("approval action processed",
		zap.String("id", id),
		zap.String("action", string(action)),
		zap.String("status", string(approval.Status)),
		zap.String("actor", actor.ID),
	)
	return approval, nil
}

// WithNote builds a decision note whose visibility follows the legacy rule:
// internal iff the action is request_info. Callers wanting explicit control
// construct store.DecisionNote directly.
func WithNote(action models.ApprovalAction, content string) *store.DecisionNote {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return &store.DecisionNote{Content: content, Internal: action == models.ActionRequestInfo}
}

// AddComment appends a comment on behalf of the acting identity.
func (s *ApprovalService) AddComment(id, content string, internal bool, actor models.Identity) (*models.ApprovalRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment content is required")
	}
	return s.store.AddComment(id, content, internal, actor)
}

// Delete removes an approval; unknown ids report false, not an error.
func (s *ApprovalService) Delete(id string) bool {
	deleted := s.store.Delete(id)
	if deleted && s.metrics != nil {
		s.metrics.RecordApprovalDeleted(1)
	}
	return deleted
}

// BulkAction applies approve/reject/delete to each id best-effort.
func (s *ApprovalService) BulkAction(ids []string, action models.ApprovalAction, actor models.Identity) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if len(ids) > s.maxBulkSize {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("bulk action limited to %d ids per call", s.maxBulkSize))
	}
	if err := s.store.BulkAction(ids, action, actor); err != nil {
		return err
	}
	s.logger.Info("bulk action applied", zap.Int("count", len(ids)), zap.String("action", string(action)))
	return nil
}

// Stats recomputes the aggregate and refreshes operation gauges.
func (s *ApprovalService) Stats() models.ApprovalStats {
	start := time.Now()
	stats := s.store.Stats()
	if s.metrics != nil {
		s.metrics.ObserveStatsScan(time.Since(start))
		s.metrics.SetApprovalGauges(stats.Pending, stats.Overdue)
	}
	return stats
}

func requireActor(actor models.Identity) error {
	if strings.TrimSpace(actor.ID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "acting identity is required")
	}
	return nil
}
