package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

// PartStore owns the in-memory parts catalog and the append-only stock
// movement log.
type PartStore struct {
	mu          sync.RWMutex
	byID        map[string]*models.Part
	order       []string
	adjustments map[string][]models.StockAdjustment
	now         func() time.Time
}

// NewPartStore constructs an empty catalog.
func NewPartStore() *PartStore {
	return &PartStore{
		byID:        make(map[string]*models.Part),
		adjustments: make(map[string][]models.StockAdjustment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a part, enforcing part-number uniqueness.
func (s *PartStore) Create(part *models.Part) (*models.Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number := strings.TrimSpace(part.PartNumber)
	for _, existing := range s.byID {
		if existing.PartNumber == number {
			return nil, appErrors.Clone(appErrors.ErrConflict, "part number already exists")
		}
	}

	now := s.now()
	rec := *part
	rec.ID = uuid.NewString()
	rec.PartNumber = number
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.byID[rec.ID] = &rec
	s.order = append(s.order, rec.ID)

	out := rec
	return &out, nil
}

// GetByID returns a copy of the part or ErrNotFound.
func (s *PartStore) GetByID(id string) (*models.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "part not found")
	}
	out := *rec
	return &out, nil
}

// AdjustStock applies a delta to the part quantity and records the movement.
// Adjustments that would drive quantity negative are rejected.
func (s *PartStore) AdjustStock(id string, delta int, reason string, actor models.Identity) (*models.Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "part not found")
	}
	next := rec.Quantity + delta
	if next < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("stock adjustment would leave %d units of %s", next, rec.PartNumber))
	}
	now := s.now()
	rec.Quantity = next
	rec.UpdatedAt = now
	s.adjustments[id] = append(s.adjustments[id], models.StockAdjustment{
		ID:        uuid.NewString(),
		PartID:    id,
		Delta:     delta,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: now,
	})

	out := *rec
	return &out, nil
}

// Adjustments returns the movement log for a part in insertion order.
func (s *PartStore) Adjustments(id string) []models.StockAdjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StockAdjustment(nil), s.adjustments[id]...)
}

// List returns parts matching the filter in insertion order.
func (s *PartStore) List(filter models.PartFilter) []models.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Part, 0, len(s.order))
	for _, id := range s.order {
		rec := s.byID[id]
		if filter.Category != "" && !strings.EqualFold(rec.Category, filter.Category) {
			continue
		}
		if filter.Supplier != "" && !strings.EqualFold(rec.Supplier, filter.Supplier) {
			continue
		}
		if filter.Status != nil && rec.StockStatus() != *filter.Status {
			continue
		}
		if q := strings.TrimSpace(filter.Search); q != "" {
			haystack := strings.ToLower(strings.Join([]string{rec.Name, rec.PartNumber, rec.Brand}, " "))
			if !strings.Contains(haystack, strings.ToLower(q)) {
				continue
			}
		}
		result = append(result, *rec)
	}
	return result
}

// ReorderAlerts returns parts at or below their reorder threshold, most
// depleted first.
func (s *PartStore) ReorderAlerts() []models.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]models.Part, 0)
	for _, id := range s.order {
		rec := s.byID[id]
		if rec.StockStatus() != models.StockInStock {
			alerts = append(alerts, *rec)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Quantity-alerts[i].MinQuantity < alerts[j].Quantity-alerts[j].MinQuantity
	})
	return alerts
}

// Count returns the catalog size, used for tier gating.
func (s *PartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
