package reports

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Type names a stored report kind.
type Type string

const (
	TypeSales     Type = "sales"
	TypeInventory Type = "inventory"
	TypeCustomer  Type = "customer"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSales, TypeInventory, TypeCustomer:
		return true
	}
	return false
}

// OrderRow is one order as seen by the aggregates.
type OrderRow struct {
	ID            int64           `json:"order_id"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OrderDate     time.Time       `json:"order_date"`
	ItemCount     int             `json:"item_count"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus string          `json:"payment_status"`
}

// LineRow is one order line joined with its product.
type LineRow struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Category    string
	SupplierID  *int64
	Quantity    int
	Subtotal    decimal.Decimal
}

// SalesFilter selects the orders of a sales report. Orders match the product
// filters when at least one of their lines does.
type SalesFilter struct {
	Start      time.Time
	End        time.Time
	CustomerID *int64
	ProductID  *int64
	Category   string
	SupplierID *int64
	TopN       int
}

func (f SalesFilter) hasLineFilter() bool {
	return f.ProductID != nil || f.Category != "" || f.SupplierID != nil
}

func (f SalesFilter) matchLine(l LineRow) bool {
	if f.ProductID != nil && l.ProductID != *f.ProductID {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.SupplierID != nil && (l.SupplierID == nil || *l.SupplierID != *f.SupplierID) {
		return false
	}
	return true
}

// SalesTotals exclude cancelled orders.
type SalesTotals struct {
	Revenue           decimal.Decimal `json:"total_revenue"`
	OrderCount        int             `json:"total_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	UniqueCustomers   int             `json:"unique_customers"`
}

type StatusBucket struct {
	Status  string          `json:"status"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DayBucket struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"total_quantity"`
	Revenue     decimal.Decimal `json:"total_revenue"`
}

type SalesReport struct {
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Totals      SalesTotals    `json:"statistics"`
	ByStatus    []StatusBucket `json:"by_status"`
	ByDay       []DayBucket    `json:"by_day"`
	TopProducts []ProductSales `json:"top_products"`
	Orders      []OrderRow     `json:"orders"`
}

// InventoryFilter narrows the inventory valuation.
type InventoryFilter struct {
	Category     string
	SupplierID   *int64
	LowStockOnly bool
}

// ProductRow is one product with its sales history counters.
type ProductRow struct {
	ID            int64           `json:"product_id"`
	Name          string          `json:"product_name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	SupplierName  string          `json:"supplier_name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	ReorderLevel  int             `json:"reorder_level"`
	Status        string          `json:"status"`
	UnitsSold     int             `json:"total_sold"`
	OrderCount    int             `json:"order_count"`
}

type ProductValuation struct {
	ProductRow
	Value    decimal.Decimal `json:"value"`
	LowStock bool            `json:"low_stock"`
}

type CategoryValuation struct {
	Category     string          `json:"category"`
	ProductCount int             `json:"product_count"`
	TotalStock   int             `json:"total_stock"`
	Value        decimal.Decimal `json:"category_value"`
}

type InventoryTotals struct {
	ProductCount int             `json:"total_products"`
	LowStock     int             `json:"low_stock_count"`
	TotalValue   decimal.Decimal `json:"total_inventory_value"`
	AverageStock decimal.Decimal `json:"average_stock_level"`
}

type InventoryReport struct {
	Products   []ProductValuation  `json:"products"`
	Categories []CategoryValuation `json:"categories"`
	Totals     InventoryTotals     `json:"statistics"`
}

// Range is an optional date window; nil bounds are open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

type CustomerRank struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	OrderCount   int             `json:"order_count"`
	Revenue      decimal.Decimal `json:"total_revenue"`
}

// CustomerInfo is the customer header of a customer report.
type CustomerInfo struct {
	ID     int64  `json:"customer_id"`
	Name   string `json:"customer_name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	City   string `json:"city"`
	Status string `json:"status"`
}

type CustomerStats struct {
	OrderCount        int             `json:"total_orders"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	FirstOrderDate    *time.Time      `json:"first_order_date"`
	LastOrderDate     *time.Time      `json:"last_order_date"`
}

type CustomerReport struct {
	Customer    CustomerInfo   `json:"customer"`
	Orders      []OrderRow     `json:"orders"`
	Stats       CustomerStats  `json:"statistics"`
	TopProducts []ProductSales `json:"top_products"`
}

// Report is a stored snapshot of a generated report.
type Report struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	GeneratedBy string          `json:"generated_by,omitempty"`
	Name        string          `json:"name"`
	Type        Type            `json:"report_type"`
	Parameters  json.RawMessage `json:"parameters"`
	Result      json.RawMessage `json:"result_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListFilter narrows the report history.
type ListFilter struct {
	UserID *int64
	Type   Type
	Limit  int
}
