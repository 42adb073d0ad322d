package inventory

import (
	"math"
	"time"

	"github.com/sioms/sioms/internal/shared"
)

// MaxQuantity is the largest stock level or movement an INTEGER column holds.
const MaxQuantity = math.MaxInt32

// ChangeType enumerates stock movement kinds.
type ChangeType string

const (
	// ChangePurchase credits stock received from a supplier.
	ChangePurchase ChangeType = "purchase"
	// ChangeSale debits stock for an order line.
	ChangeSale ChangeType = "sale"
	// ChangeAdjustment corrects stock in either direction.
	ChangeAdjustment ChangeType = "adjustment"
	// ChangeReturn credits stock back from a cancelled or deleted order.
	ChangeReturn ChangeType = "return"
)

// Valid reports whether c is a known change type.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangePurchase, ChangeSale, ChangeAdjustment, ChangeReturn:
		return true
	}
	return false
}

// allows checks the sign convention of the change type.
func (c ChangeType) allows(delta int) bool {
	switch c {
	case ChangePurchase, ChangeReturn:
		return delta > 0
	case ChangeSale:
		return delta < 0
	default:
		return delta != 0
	}
}

// Product is the ledger's view of a product row.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	StockQuantity int       `json:"stock_quantity"`
	ReorderLevel  int       `json:"reorder_level"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Movement is one append-only stock log entry.
type Movement struct {
	ID               int64      `json:"id"`
	ProductID        int64      `json:"product_id"`
	ProductName      string     `json:"product_name,omitempty"`
	UserID           *int64     `json:"user_id"`
	ChangeQuantity   int        `json:"change_quantity"`
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	ChangeType       ChangeType `json:"change_type"`
	ReferenceID      *int64     `json:"reference_id"`
	Notes            string     `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AdjustInput describes a single stock change.
type AdjustInput struct {
	ProductID   int64
	Delta       int
	ActorID     int64
	ChangeType  ChangeType
	ReferenceID *int64
	Notes       string
}

// AdjustRequest is the HTTP payload for manual stock updates.
type AdjustRequest struct {
	Delta      int        `json:"change_quantity" validate:"ne=0,min=-2147483647,max=2147483647"`
	ChangeType ChangeType `json:"change_type" validate:"required,oneof=purchase sale adjustment return"`
	Notes      string     `json:"notes" validate:"max=1000"`
}

// MovementFilter narrows stock log listings.
type MovementFilter struct {
	ProductID  *int64
	UserID     *int64
	ChangeType ChangeType
	From       *time.Time
	To         *time.Time
	Limit      int
}

// TypeSummary aggregates movements of one change type.
type TypeSummary struct {
	ChangeType ChangeType `json:"change_type"`
	Movements  int        `json:"movements"`
	Additions  int        `json:"additions"`
	Reductions int        `json:"reductions"`
	NetChange  int        `json:"net_change"`
}

// Summary aggregates movements in a window.
type Summary struct {
	ByType         []TypeSummary `json:"by_type"`
	TotalMovements int           `json:"total_movements"`
	ActiveProducts int           `json:"active_products"`
	ActiveUsers    int           `json:"active_users"`
}

// LedgerCheck is the outcome of replaying one product's movements.
type LedgerCheck struct {
	ProductID     int64  `json:"product_id"`
	StockQuantity int    `json:"stock_quantity"`
	Replayed      int    `json:"replayed_quantity"`
	Movements     int    `json:"movements"`
	ChainBreaks   int    `json:"chain_breaks"`
	Consistent    bool   `json:"consistent"`
	Detail        string `json:"detail,omitempty"`
}

func validateAdjust(input AdjustInput) error {
	fields := map[string]string{}
	if input.ProductID <= 0 {
		fields["product_id"] = "must be a positive integer"
	}
	switch {
	case input.Delta == 0:
		fields["change_quantity"] = "must be nonzero"
	case input.Delta > MaxQuantity || input.Delta < -MaxQuantity:
		fields["change_quantity"] = "is too large"
	case !input.ChangeType.Valid():
		fields["change_type"] = "must be one of purchase sale adjustment return"
	case !input.ChangeType.allows(input.Delta):
		fields["change_quantity"] = "sign does not match change type " + string(input.ChangeType)
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}
