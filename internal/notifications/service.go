package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sioms/sioms/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	Get(ctx context.Context, id int64) (Notification, error)
	List(ctx context.Context, filter ListFilter) ([]Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	DeleteByReference(ctx context.Context, refID int64, types ...Type) error
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var moneyPrinter = message.NewPrinter(language.English)

// Service records and serves notifications.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Emit appends a notification. Callers inside a unit of work pass its context
// so the insert commits or rolls back with it.
func (s *Service) Emit(ctx context.Context, n Notification) (Notification, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return Notification{}, shared.NewValidationError("title", "title and message are required")
	}
	if !n.Type.Valid() {
		return Notification{}, shared.NewValidationError("type", "unknown notification type")
	}
	n.IsRead = false
	return s.repo.Insert(ctx, n)
}

// LowStock records a low-stock alert for a product.
func (s *Service) LowStock(ctx context.Context, productID int64, productName string, remaining int) error {
	msg := fmt.Sprintf("%s is below reorder level (%d remaining)", productName, remaining)
	if remaining <= 0 {
		msg = fmt.Sprintf("%s is out of stock", productName)
	}
	_, err := s.Emit(ctx, Notification{
		Title:       "Low Stock Alert",
		Message:     msg,
		Type:        TypeLowStock,
		ReferenceID: &productID,
	})
	return err
}

// OrderPlaced records the new-order event.
func (s *Service) OrderPlaced(ctx context.Context, orderID int64) error {
	_, err := s.Emit(ctx, Notification{
		Title:       "New Order Placed",
		Message:     fmt.Sprintf("Order #%d has been placed and needs processing", orderID),
		Type:        TypeOrderStatus,
		ReferenceID: &orderID,
	})
	return err
}

// OrderStatusChanged records a status transition.
func (s *Service) OrderStatusChanged(ctx context.Context, orderID int64, status string) error {
	_, err := s.Emit(ctx, Notification{
		Title:       "Order Status Update",
		Message:     fmt.Sprintf("Order #%d status changed to %s", orderID, status),
		Type:        TypeOrderStatus,
		ReferenceID: &orderID,
	})
	return err
}

// PaymentRecorded records a payment event for an order.
func (s *Service) PaymentRecorded(ctx context.Context, orderID int64, amount decimal.Decimal, status string) error {
	_, err := s.Emit(ctx, Notification{
		Title:       "Payment Received",
		Message:     fmt.Sprintf("Payment of %s has been %s for Order #%d", FormatMoney(amount), status, orderID),
		Type:        TypePayment,
		ReferenceID: &orderID,
	})
	return err
}

// PaymentStatusChanged records a payment status update for an order.
func (s *Service) PaymentStatusChanged(ctx context.Context, orderID int64, status string) error {
	_, err := s.Emit(ctx, Notification{
		Title:       "Payment Status Update",
		Message:     fmt.Sprintf("Payment status for Order #%d has been updated to %s", orderID, status),
		Type:        TypePayment,
		ReferenceID: &orderID,
	})
	return err
}

// DiscardForOrder removes order and payment notifications of a deleted order.
func (s *Service) DiscardForOrder(ctx context.Context, orderID int64) error {
	return s.repo.DeleteByReference(ctx, orderID, TypeOrderStatus, TypePayment)
}

// Create posts a manual notification.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Notification, error) {
	if err := shared.Validate(req); err != nil {
		return Notification{}, err
	}
	if req.Type == "" {
		req.Type = TypeOther
	}
	return s.Emit(ctx, Notification{
		UserID:      req.UserID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Notification, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.NewValidationError("type", "unknown notification type")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	return s.repo.List(ctx, filter)
}

// MarkRead flips the read flag. Already-read notifications stay read.
func (s *Service) MarkRead(ctx context.Context, id int64) (Notification, error) {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return Notification{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DeleteAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.DeleteAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// PurgeRead deletes read notifications older than retention.
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeRead(ctx, time.Now().Add(-retention))
}

// FormatMoney renders an amount with a dollar sign, thousands separators and cents.
func FormatMoney(amount decimal.Decimal) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	whole := amount.Truncate(0)
	cents := amount.Sub(whole).Shift(2).IntPart()
	return sign + moneyPrinter.Sprintf("$%d", whole.IntPart()) + fmt.Sprintf(".%02d", cents)
}
