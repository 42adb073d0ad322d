package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. StockQuantity is read-only here;
// only the inventory ledger changes it.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	ReorderLevel  int             `json:"reorder_level"`
	SupplierID    *int64          `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}
