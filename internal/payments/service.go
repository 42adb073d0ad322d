package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Transactor runs a unit of work carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// OrderAdvancer moves a pending order to processing once it is paid.
type OrderAdvancer interface {
	Confirm(ctx context.Context, id int64) (orders.Order, error)
}

// Notifier receives payment events inside the unit of work.
type Notifier interface {
	PaymentRecorded(ctx context.Context, orderID int64, amount decimal.Decimal, status string) error
	PaymentStatusChanged(ctx context.Context, orderID int64, status string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts recorded payments.
type MetricsPort interface {
	PaymentRecorded(status string)
}

// Invalidator refreshes cached summaries after committed changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service applies payments to orders.
type Service struct {
	tx       Transactor
	repo     Repository
	orders   OrderAdvancer
	notifier Notifier
	audit    AuditPort
	metrics  MetricsPort
	cache    Invalidator
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises Service.
type Option func(*Service)

func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }
func WithMetrics(m MetricsPort) Option { return func(s *Service) { s.metrics = m } }
func WithInvalidator(c Invalidator) Option { return func(s *Service) { s.cache = c } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the clock used for statistics windows.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService builds Service.
func NewService(tx Transactor, repo Repository, advancer OrderAdvancer, notifier Notifier, opts ...Option) *Service {
	s := &Service{tx: tx, repo: repo, orders: advancer, notifier: notifier, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPayment appends a payment under the order row lock and advances a
// pending order to processing when it becomes fully paid.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (Payment, error) {
	if err := validateRecord(req); err != nil {
		return Payment{}, err
	}
	payment := toPayment(req)
	actorID := shared.ActorID(ctx)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.LockOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status == orders.StatusCancelled {
			return &shared.ConflictError{Reason: fmt.Sprintf("order %d is cancelled", order.ID)}
		}
		before, err := s.repo.CompletedTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		if payment, err = s.repo.Insert(ctx, payment); err != nil {
			return err
		}
		if err := s.advance(ctx, order, before); err != nil {
			return err
		}
		if s.notifier != nil {
			if err := s.notifier.PaymentRecorded(ctx, order.ID, payment.Amount, string(payment.Status)); err != nil {
				return err
			}
		}
		return s.record(ctx, actorID, "payment:record", payment.ID, map[string]any{
			"order_id": order.ID,
			"amount":   payment.Amount.StringFixed(2),
			"method":   string(payment.Method),
			"status":   string(payment.Status),
		})
	})
	if err != nil {
		return Payment{}, err
	}
	if s.metrics != nil {
		s.metrics.PaymentRecorded(string(payment.Status))
	}
	s.bump(ctx)
	return s.repo.Get(ctx, payment.ID)
}

// UpdateStatus changes a payment's status and re-derives the order's position.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req UpdateStatusRequest) (Payment, error) {
	if err := shared.Validate(req); err != nil {
		return Payment{}, err
	}
	actorID := shared.ActorID(ctx)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		order, err := s.repo.LockOrder(ctx, current.OrderID)
		if err != nil {
			return err
		}
		before, err := s.repo.CompletedTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
			return err
		}
		if err := s.advance(ctx, order, before); err != nil {
			return err
		}
		if s.notifier != nil {
			if err := s.notifier.PaymentStatusChanged(ctx, order.ID, string(req.Status)); err != nil {
				return err
			}
		}
		return s.record(ctx, actorID, "payment:status", id, map[string]any{
			"from": string(current.Status),
			"to":   string(req.Status),
		})
	})
	if err != nil {
		return Payment{}, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// advance confirms a pending order whose completed payments just reached its total.
func (s *Service) advance(ctx context.Context, order OrderRef, before decimal.Decimal) error {
	after, err := s.repo.CompletedTotal(ctx, order.ID)
	if err != nil {
		return err
	}
	if Derive(order.TotalAmount, before) == StatePaid || Derive(order.TotalAmount, after) != StatePaid {
		return nil
	}
	if order.Status != orders.StatusPending || s.orders == nil {
		return nil
	}
	if _, err := s.orders.Confirm(ctx, order.ID); err != nil {
		return fmt.Errorf("payments: advance order %d: %w", order.ID, err)
	}
	return nil
}

// Delete removes a payment. The order status is left as is.
func (s *Service) Delete(ctx context.Context, id int64) error {
	actorID := shared.ActorID(ctx)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.repo.LockOrder(ctx, current.OrderID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, actorID, "payment:delete", id, map[string]any{
			"order_id": current.OrderID,
			"amount":   current.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	if filter.Method != "" && !filter.Method.Valid() {
		return nil, 0, shared.NewValidationError("payment_method", "unknown payment method")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.NewValidationError("status", "unknown payment status")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, shared.NewValidationError("end_date", "must not be before start_date")
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	return s.repo.List(ctx, filter)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return page, limit
}

// ForOrder returns the payments of an order with its derived payment summary.
func (s *Service) ForOrder(ctx context.Context, orderID int64) ([]Payment, Summary, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, Summary{}, err
	}
	items, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, Summary{}, err
	}
	paid := decimal.Zero
	for _, p := range items {
		if p.Status == StatusCompleted {
			paid = paid.Add(p.Amount)
		}
	}
	return items, summarize(orderID, order.TotalAmount, paid), nil
}

// Statistics aggregates payments in the calendar window of period.
func (s *Service) Statistics(ctx context.Context, period Period) (Statistics, error) {
	if period == "" {
		period = PeriodMonth
	}
	from, to, ok := period.Bounds(s.now())
	if !ok {
		return Statistics{}, shared.NewValidationError("period", "must be one of today, week, month, year")
	}
	stats, err := s.repo.Statistics(ctx, from, to)
	if err != nil {
		return Statistics{}, err
	}
	stats.Period = period
	return stats, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, paymentID int64, meta map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(paymentID, 10),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("payments: cache bump failed", slog.Any("error", err))
	}
}
