package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is derived from quantity against the reorder threshold.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// Part is one catalog entry of the parts inventory.
type Part struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PartNumber   string          `json:"part_number"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand,omitempty"`
	Quantity     int             `json:"quantity"`
	MinQuantity  int             `json:"min_quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Currency     string          `json:"currency"`
	Supplier     string          `json:"supplier,omitempty"`
	Location     string          `json:"location,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StockStatus derives the alert level for the current quantity.
func (p *Part) StockStatus() StockStatus {
	switch {
	case p.Quantity <= 0:
		return StockOutOfStock
	case p.Quantity <= p.MinQuantity:
		return StockLowStock
	default:
		return StockInStock
	}
}

// StockAdjustment is one entry of a part's append-only movement log.
type StockAdjustment struct {
	ID        string    `json:"id"`
	PartID    string    `json:"part_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Actor     Identity  `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// PartFilter captures filtering criteria for listing parts.
type PartFilter struct {
	Category string
	Supplier string
	Status   *StockStatus
	Search   string
}
