package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Action names a status transition.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from Status
	to   Status
}

var transitions = map[Action]transition{
	ActionConfirm: {from: StatusPending, to: StatusProcessing},
	ActionShip:    {from: StatusProcessing, to: StatusShipped},
	ActionDeliver: {from: StatusShipped, to: StatusDelivered},
	ActionCancel:  {from: StatusPending, to: StatusCancelled},
}

// Next returns the status reached by applying action to s.
func (s Status) Next(action Action) (Status, bool) {
	t, ok := transitions[action]
	if !ok || t.from != s {
		return "", false
	}
	return t.to, true
}

// Shipping is the address snapshot stored on the order.
type Shipping struct {
	Address    string `json:"address" validate:"max=500"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

// Order is an order header with its line items.
type Order struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	UserID       int64           `json:"user_id"`
	Status       Status          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Shipping     Shipping        `json:"shipping"`
	Notes        string          `json:"notes"`
	OrderDate    time.Time       `json:"order_date"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Lines        []Line          `json:"items,omitempty"`
}

// Line is one order_details row. OrderID never changes after insert.
type Line struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	LineNo      int             `json:"line_no"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     Status
	CustomerID *int64
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}
