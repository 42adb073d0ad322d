package products

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CreateRequest is the payload for new products. StockQuantity is booked
// through the ledger as a purchase.
type CreateRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	SKU           string          `json:"sku" validate:"required,max=64"`
	Category      string          `json:"category" validate:"max=100"`
	Description   string          `json:"description" validate:"max=2000"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0,lte=2147483647"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0,lte=2147483647"`
	SupplierID    *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
	Status        string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateRequest edits product attributes. Stock is not part of it.
type UpdateRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	SKU          string          `json:"sku" validate:"required,max=64"`
	Category     string          `json:"category" validate:"max=100"`
	Description  string          `json:"description" validate:"max=2000"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ReorderLevel int             `json:"reorder_level" validate:"gte=0,lte=2147483647"`
	SupplierID   *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
	Status       string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (r CreateRequest) toProduct() Product {
	return UpdateRequest{
		Name:         r.Name,
		SKU:          r.SKU,
		Category:     r.Category,
		Description:  r.Description,
		UnitPrice:    r.UnitPrice,
		ReorderLevel: r.ReorderLevel,
		SupplierID:   r.SupplierID,
		Status:       r.Status,
	}.toProduct()
}

func (r UpdateRequest) toProduct() Product {
	status := r.Status
	if status == "" {
		status = "active"
	}
	return Product{
		Name:         strings.TrimSpace(r.Name),
		SKU:          strings.ToUpper(strings.TrimSpace(r.SKU)),
		Category:     strings.TrimSpace(r.Category),
		Description:  r.Description,
		UnitPrice:    r.UnitPrice.Round(2),
		ReorderLevel: r.ReorderLevel,
		SupplierID:   r.SupplierID,
		Status:       status,
	}
}
