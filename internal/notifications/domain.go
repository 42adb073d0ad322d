package notifications

import (
	"time"
)

// Type enumerates notification categories.
type Type string

const (
	TypeOrderStatus Type = "order_status"
	TypeLowStock    Type = "low_stock"
	TypePayment     Type = "payment"
	TypeOther       Type = "other"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeOrderStatus, TypeLowStock, TypePayment, TypeOther:
		return true
	}
	return false
}

// Notification is an append-only dashboard event. Only IsRead ever changes.
type Notification struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        Type      `json:"type"`
	ReferenceID *int64    `json:"reference_id"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListFilter narrows notification listings. UserID matches the user's own
// notifications plus broadcasts.
type ListFilter struct {
	UserID int64
	Type   Type
	IsRead *bool
	Limit  int
}

// CreateRequest is the payload for manually posted notifications.
type CreateRequest struct {
	UserID      *int64 `json:"user_id" validate:"omitempty,gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Message     string `json:"message" validate:"required,max=2000"`
	Type        Type   `json:"type" validate:"omitempty,oneof=order_status low_stock payment other"`
	ReferenceID *int64 `json:"reference_id" validate:"omitempty,gt=0"`
}
