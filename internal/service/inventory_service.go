package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

type partStore interface {
	Create(part *models.Part) (*models.Part, error)
	GetByID(id string) (*models.Part, error)
	AdjustStock(id string, delta int, reason string, actor models.Identity) (*models.Part, error)
	Adjustments(id string) []models.StockAdjustment
	List(filter models.PartFilter) []models.Part
	ReorderAlerts() []models.Part
	Count() int
}

// CreatePartRequest is the payload for adding a catalog entry.
type CreatePartRequest struct {
	Name         string          `json:"name" validate:"required"`
	PartNumber   string          `json:"part_number" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	Brand        string          `json:"brand"`
	Quantity     int             `json:"quantity" validate:"gte=0"`
	MinQuantity  int             `json:"min_quantity" validate:"gte=0"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	Supplier     string          `json:"supplier"`
	Location     string          `json:"location"`
}

// InventoryService manages the parts catalog and stock movements.
type InventoryService struct {
	store              partStore
	gate               limitGate
	validator          *validator.Validate
	logger             *zap.Logger
	defaultCurrency    string
	defaultMinQuantity int
}

// InventoryServiceConfig tunes catalog defaults.
type InventoryServiceConfig struct {
	DefaultCurrency    string
	DefaultMinQuantity int
}

// NewInventoryService creates an instance of InventoryService.
func NewInventoryService(st partStore, gate limitGate, logger *zap.Logger, cfg InventoryServiceConfig) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "TND"
	}
	if cfg.DefaultMinQuantity <= 0 {
		cfg.DefaultMinQuantity = 5
	}
	return &InventoryService{
		store:              st,
		gate:               gate,
		validator:          validator.New(),
		logger:             logger,
		defaultCurrency:    cfg.DefaultCurrency,
		defaultMinQuantity: cfg.DefaultMinQuantity,
	}
}

// Create adds a part after tier gating and validation.
func (s *InventoryService) Create(req CreatePartRequest) (*models.Part, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create part payload")
	}
	if req.UnitCost.IsNegative() || req.SellingPrice.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "prices must not be negative")
	}
	if s.gate != nil {
		if err := s.gate.Allow(models.ResourceParts, s.store.Count()); err != nil {
			return nil, err
		}
	}

	minQuantity := req.MinQuantity
	if minQuantity == 0 {
		minQuantity = s.defaultMinQuantity
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	part, err := s.store.Create(&models.Part{
		Name:         strings.TrimSpace(req.Name),
		PartNumber:   req.PartNumber,
		Category:     strings.TrimSpace(req.Category),
		Brand:        strings.TrimSpace(req.Brand),
		Quantity:     req.Quantity,
		MinQuantity:  minQuantity,
		UnitCost:     req.UnitCost,
		SellingPrice: req.SellingPrice,
		Currency:     currency,
		Supplier:     strings.TrimSpace(req.Supplier),
		Location:     strings.TrimSpace(req.Location),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("part created", zap.String("id", part.ID), zap.String("part_number", part.PartNumber))
	return part, nil
}

// Get returns a part by id.
func (s *InventoryService) Get(id string) (*models.Part, error) {
	return s.store.GetByID(id)
}

// AdjustStock moves stock for a part and records who moved it and why.
func (s *InventoryService) AdjustStock(id string, delta int, reason string, actor models.Identity) (*models.Part, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stock delta must not be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustment reason is required")
	}
	part, err := s.store.AdjustStock(id, delta, reason, actor)
	if err != nil {
		return nil, err
	}
	if part.StockStatus() != models.StockInStock {
		s.logger.Warn("part below reorder threshold",
			zap.String("id", part.ID),
			zap.String("part_number", part.PartNumber),
			zap.Int("quantity", part.Quantity),
			zap.Int("min_quantity", part.MinQuantity),
		)
	}
	return part, nil
}

// Adjustments returns a part's movement log.
func (s *InventoryService) Adjustments(id string) []models.StockAdjustment {
	return s.store.Adjustments(id)
}

// List returns parts matching the filter.
func (s *InventoryService) List(filter models.PartFilter) []models.Part {
	return s.store.List(filter)
}

// ReorderAlerts returns parts at or below their reorder threshold.
func (s *InventoryService) ReorderAlerts() []models.Part {
	return s.store.ReorderAlerts()
}

// Valuation sums quantity times unit cost per currency across the catalog.
func (s *InventoryService) Valuation() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, part := range s.store.List(models.PartFilter{}) {
		line := part.UnitCost.Mul(decimal.NewFromInt(int64(part.Quantity)))
		totals[part.Currency] = totals[part.Currency].Add(line)
	}
	return totals
}
