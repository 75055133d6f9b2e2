package seed

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	"github.com/alabenkhlifa/opauto-core/internal/store"
)

// Load populates the stores with a small demo dataset so a fresh instance has
// something to show. Errors are logged and skipped; seeding is best effort.
func Load(approvals *store.ApprovalStore, users *store.UserStore, parts *store.PartStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	owner, err := users.Create(&models.User{
		Email:    "ala@opauto.tn",
		FullName: "Ala Ben Khlifa",
		Role:     models.RoleOwner,
		Active:   true,
	})
	if err != nil {
		logger.Warn("seed: owner not created", zap.Error(err))
		return
	}
	manager, err := users.Create(&models.User{
		Email:    "sami@opauto.tn",
		FullName: "Sami Trabelsi",
		Role:     models.RoleManager,
		Active:   true,
	})
	if err != nil {
		logger.Warn("seed: manager not created", zap.Error(err))
		return
	}
	mechanic, err := users.Create(&models.User{
		Email:    "karim@opauto.tn",
		FullName: "Karim Jebali",
		Role:     models.RoleMechanic,
		Active:   true,
	})
	if err != nil {
		logger.Warn("seed: mechanic not created", zap.Error(err))
		return
	}

	seedParts(parts, logger)
	seedApprovals(approvals, owner.Identity(), manager.Identity(), mechanic.Identity(), logger)
}

func seedParts(parts *store.PartStore, logger *zap.Logger) {
	demo := []models.Part{
		{
			Name: "Brake Pad Set", PartNumber: "BP-2041", Category: "brakes", Brand: "Bosch",
			Quantity: 12, MinQuantity: 4,
			UnitCost: decimal.NewFromFloat(85.50), SellingPrice: decimal.NewFromFloat(129.00),
			Currency: "TND", Supplier: "AutoParts Tunis", Location: "A1-03",
		},
		{
			Name: "Oil Filter", PartNumber: "OF-1109", Category: "engine", Brand: "Mann",
			Quantity: 3, MinQuantity: 6,
			UnitCost: decimal.NewFromFloat(18.75), SellingPrice: decimal.NewFromFloat(32.00),
			Currency: "TND", Supplier: "AutoParts Tunis", Location: "B2-11",
		},
		{
			Name: "Timing Belt", PartNumber: "TB-3300", Category: "engine", Brand: "Gates",
			Quantity: 0, MinQuantity: 2,
			UnitCost: decimal.NewFromFloat(142.00), SellingPrice: decimal.NewFromFloat(210.00),
			Currency: "TND", Supplier: "MedParts Sfax", Location: "B3-02",
		},
		{
			Name: "Cabin Air Filter", PartNumber: "CF-0872", Category: "filters", Brand: "Mahle",
			Quantity: 20, MinQuantity: 5,
			UnitCost: decimal.NewFromFloat(22.40), SellingPrice: decimal.NewFromFloat(39.00),
			Currency: "TND", Supplier: "MedParts Sfax", Location: "A2-07",
		},
	}
	for i := range demo {
		if _, err := parts.Create(&demo[i]); err != nil {
			logger.Warn("seed: part not created", zap.String("part_number", demo[i].PartNumber), zap.Error(err))
		}
	}
}

func seedApprovals(approvals *store.ApprovalStore, owner, manager, mechanic models.Identity, logger *zap.Logger) {
	cost := decimal.NewFromFloat(285.00)
	dueSoon := time.Now().UTC().Add(48 * time.Hour)

	first, err := approvals.Create(&models.ApprovalRequest{
		Type:          models.ApprovalTypePartPurchase,
		Title:         "Restock timing belts",
		Description:   "TB-3300 is out of stock, two jobs waiting",
		Priority:      models.PriorityHigh,
		Currency:      "TND",
		EstimatedCost: &cost,
		RelatedEntity: &models.EntityRef{Type: "part", ID: "TB-3300", Name: "Timing Belt"},
		DueDate:       &dueSoon,
	}, mechanic)
	if err != nil {
		logger.Warn("seed: approval not created", zap.Error(err))
		return
	}

	if _, err := approvals.Create(&models.ApprovalRequest{
		Type:        models.ApprovalTypeOvertimeRequest,
		Title:       "Weekend overtime for fleet service",
		Description: "Three vans due Monday morning",
		Priority:    models.PriorityMedium,
		Currency:    "TND",
	}, mechanic); err != nil {
		logger.Warn("seed: approval not created", zap.Error(err))
	}

	discount := decimal.NewFromFloat(60.00)
	if _, err := approvals.Create(&models.ApprovalRequest{
		Type:          models.ApprovalTypeDiscountRequest,
		Title:         "Loyalty discount for Ben Salah garage",
		Priority:      models.PriorityLow,
		Currency:      "TND",
		EstimatedCost: &discount,
	}, manager); err != nil {
		logger.Warn("seed: approval not created", zap.Error(err))
	}

	note := &store.DecisionNote{Content: "Order from MedParts, they deliver Thursday", Internal: true}
	if _, err := approvals.ProcessAction(first.ID, models.ActionApprove, note, owner); err != nil {
		logger.Warn("seed: approval action failed", zap.Error(err))
	}
}
