package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/shared"
)

const idempotencyModule = "orders"

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Transactor runs a unit of work carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// StockAdjuster is the ledger entry point.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, input inventory.AdjustInput) (inventory.Product, error)
}

// Notifier receives order events inside the unit of work.
type Notifier interface {
	OrderPlaced(ctx context.Context, orderID int64) error
	OrderStatusChanged(ctx context.Context, orderID int64, status string) error
	DiscardForOrder(ctx context.Context, orderID int64) error
}

// IdempotencyPort records processed placement keys.
type IdempotencyPort interface {
	Lookup(ctx context.Context, key, module string) (int64, bool, error)
	Insert(ctx context.Context, key, module string, refID int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives order counters.
type MetricsPort interface {
	OrderPlaced()
	OrderTransitioned(status string)
}

// Invalidator refreshes cached summaries after committed changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Deps groups the collaborators of Service. Only Tx, Repo and Stock are required.
type Deps struct {
	Tx          Transactor
	Repo        Repository
	Stock       StockAdjuster
	Notifier    Notifier
	Idempotency IdempotencyPort
	Audit       AuditPort
	Metrics     MetricsPort
	Cache       Invalidator
	Logger      *slog.Logger
}

// Service places orders and drives their lifecycle.
type Service struct {
	Deps
}

// NewService builds Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{Deps: deps}
}

// PlaceOrder validates and persists an order, debiting stock for every line in
// one unit of work.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Order, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := validatePlaceOrder(req); err != nil {
		return Order{}, err
	}
	if req.UserID == 0 {
		req.UserID = shared.ActorID(ctx)
	}
	if req.IdempotencyKey != "" && s.Idempotency != nil {
		orderID, found, err := s.Idempotency.Lookup(ctx, req.IdempotencyKey, idempotencyModule)
		if err != nil {
			return Order{}, fmt.Errorf("orders: idempotency lookup: %w", err)
		}
		if found {
			return s.Repo.Get(ctx, orderID)
		}
	}

	lines, total := buildLines(req.Lines)

	var orderID int64
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.Repo.CustomerExists(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.NotFoundError{Entity: "customer", ID: req.CustomerID}
		}
		order, err := s.Repo.Insert(ctx, Order{
			CustomerID:  req.CustomerID,
			UserID:      req.UserID,
			Status:      StatusPending,
			TotalAmount: total,
			Shipping:    req.Shipping,
			Notes:       req.Notes,
		})
		if err != nil {
			return err
		}
		orderID = order.ID
		if req.IdempotencyKey != "" && s.Idempotency != nil {
			if err := s.Idempotency.Insert(ctx, req.IdempotencyKey, idempotencyModule, orderID); err != nil {
				return err
			}
		}
		for i := range lines {
			lines[i].OrderID = orderID
			if lines[i], err = s.Repo.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if err := s.moveStock(ctx, lines, -1, inventory.ChangeSale, req.UserID, fmt.Sprintf("Order #%d", orderID)); err != nil {
			return err
		}
		if s.Notifier != nil {
			if err := s.Notifier.OrderPlaced(ctx, orderID); err != nil {
				return err
			}
		}
		return s.record(ctx, req.UserID, "order:place", orderID, map[string]any{
			"customer_id": req.CustomerID,
			"total":       total.StringFixed(2),
			"lines":       len(lines),
		})
	})
	if err != nil {
		return Order{}, err
	}
	if s.Metrics != nil {
		s.Metrics.OrderPlaced()
	}
	s.bump(ctx)
	s.Logger.Info("order placed", slog.Int64("order_id", orderID), slog.String("total", total.StringFixed(2)))
	return s.Repo.Get(ctx, orderID)
}

// moveStock adjusts stock for every line in ascending product order so
// concurrent orders lock rows in the same sequence.
func (s *Service) moveStock(ctx context.Context, lines []Line, sign int, changeType inventory.ChangeType, actorID int64, notes string) error {
	ordered := make([]Line, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })
	for _, line := range ordered {
		orderID := line.OrderID
		if _, err := s.Stock.AdjustStock(ctx, inventory.AdjustInput{
			ProductID:   line.ProductID,
			Delta:       sign * line.Quantity,
			ActorID:     actorID,
			ChangeType:  changeType,
			ReferenceID: &orderID,
			Notes:       notes,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.Repo.Get(ctx, id)
}

// List returns a page of order headers, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.NewValidationError("status", "unknown order status")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, shared.NewValidationError("end_date", "must not be before start_date")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	return s.Repo.List(ctx, filter)
}

func (s *Service) Confirm(ctx context.Context, id int64) (Order, error) {
	return s.Transition(ctx, id, ActionConfirm)
}

func (s *Service) Ship(ctx context.Context, id int64) (Order, error) {
	return s.Transition(ctx, id, ActionShip)
}

func (s *Service) Deliver(ctx context.Context, id int64) (Order, error) {
	return s.Transition(ctx, id, ActionDeliver)
}

// Cancel moves a pending order to cancelled and returns its stock.
func (s *Service) Cancel(ctx context.Context, id int64) (Order, error) {
	return s.Transition(ctx, id, ActionCancel)
}

// Transition applies action under a row lock on the order.
func (s *Service) Transition(ctx context.Context, id int64, action Action) (Order, error) {
	if _, ok := transitions[action]; !ok {
		return Order{}, shared.NewValidationError("action", "unknown order action")
	}
	actorID := shared.ActorID(ctx)
	var next Status
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		var ok bool
		if next, ok = order.Status.Next(action); !ok {
			return &shared.ConflictError{Reason: fmt.Sprintf("cannot %s order %d in status %s", action, id, order.Status)}
		}
		if action == ActionCancel {
			lines, err := s.Repo.Lines(ctx, id)
			if err != nil {
				return err
			}
			if err := s.moveStock(ctx, lines, 1, inventory.ChangeReturn, actorID, fmt.Sprintf("Order #%d cancelled", id)); err != nil {
				return err
			}
		}
		if err := s.Repo.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		if s.Notifier != nil {
			if err := s.Notifier.OrderStatusChanged(ctx, id, string(next)); err != nil {
				return err
			}
		}
		return s.record(ctx, actorID, "order:"+string(action), id, map[string]any{
			"from": string(order.Status),
			"to":   string(next),
		})
	})
	if err != nil {
		return Order{}, err
	}
	if s.Metrics != nil {
		s.Metrics.OrderTransitioned(string(next))
	}
	s.bump(ctx)
	return s.Repo.Get(ctx, id)
}

// Delete removes a pending order, returning its stock and discarding its
// lines, payments and notifications.
func (s *Service) Delete(ctx context.Context, id int64) error {
	actorID := shared.ActorID(ctx)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return &shared.ConflictError{Reason: fmt.Sprintf("order %d is %s; only pending orders can be deleted", id, order.Status)}
		}
		lines, err := s.Repo.Lines(ctx, id)
		if err != nil {
			return err
		}
		if err := s.moveStock(ctx, lines, 1, inventory.ChangeReturn, actorID, fmt.Sprintf("Order #%d deleted", id)); err != nil {
			return err
		}
		if err := s.Repo.Delete(ctx, id); err != nil {
			return err
		}
		if s.Notifier != nil {
			if err := s.Notifier.DiscardForOrder(ctx, id); err != nil {
				return err
			}
		}
		return s.record(ctx, actorID, "order:delete", id, map[string]any{"total": order.TotalAmount.StringFixed(2)})
	})
	if err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) error {
	if s.Audit == nil {
		return nil
	}
	return s.Audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Bump(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Warn("orders: cache bump failed", slog.Any("error", err))
	}
}
