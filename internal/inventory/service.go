package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sioms/sioms/internal/shared"
)

// Transactor runs a unit of work. Calls made with a context that already
// carries one join it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// RepositoryPort abstracts persistence for the ledger.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	UpdateStock(ctx context.Context, productID int64, quantity int) error
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ProductMovements(ctx context.Context, productID int64) ([]Movement, error)
	Summarize(ctx context.Context, from, to *time.Time) (Summary, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
}

// Notifier receives low-stock events inside the unit of work.
type Notifier interface {
	LowStock(ctx context.Context, productID int64, productName string, remaining int) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives ledger counters.
type MetricsPort interface {
	StockAdjusted(changeType string, err error)
	LowStockAlert()
}

// Invalidator is told when stock changed so cached summaries can refresh.
type Invalidator interface {
	Bump(ctx context.Context) error
}

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 1000
)

// Service is the single entry point for stock mutations.
type Service struct {
	tx       Transactor
	repo     RepositoryPort
	notifier Notifier
	audit    AuditPort
	metrics  MetricsPort
	cache    Invalidator
	logger   *slog.Logger
}

// Option customises Service.
type Option func(*Service)

// WithAudit records adjustments in the audit trail.
func WithAudit(audit AuditPort) Option {
	return func(s *Service) { s.audit = audit }
}

// WithMetrics counts adjustments and alerts.
func WithMetrics(m MetricsPort) Option {
	return func(s *Service) { s.metrics = m }
}

// WithInvalidator bumps cached summaries after committed changes.
func WithInvalidator(c Invalidator) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds Service.
func NewService(tx Transactor, repo RepositoryPort, notifier Notifier, opts ...Option) *Service {
	s := &Service{tx: tx, repo: repo, notifier: notifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdjustStock applies a signed delta to a product's stock, appends the
// movement and emits one low-stock alert whenever the resulting stock is at
// or below the reorder level.
func (s *Service) AdjustStock(ctx context.Context, input AdjustInput) (Product, error) {
	if err := validateAdjust(input); err != nil {
		return Product{}, err
	}
	var product Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		newQty := current.StockQuantity + input.Delta
		if newQty < 0 {
			return &shared.InsufficientStockError{
				ProductID: current.ID,
				Available: current.StockQuantity,
				Requested: -input.Delta,
			}
		}
		if newQty > MaxQuantity {
			return shared.NewValidationError("change_quantity", "resulting stock is too large")
		}
		if err := s.repo.UpdateStock(ctx, current.ID, newQty); err != nil {
			return err
		}
		var userID *int64
		if input.ActorID > 0 {
			userID = &input.ActorID
		}
		if _, err := s.repo.InsertMovement(ctx, Movement{
			ProductID:        current.ID,
			UserID:           userID,
			ChangeQuantity:   input.Delta,
			PreviousQuantity: current.StockQuantity,
			NewQuantity:      newQty,
			ChangeType:       input.ChangeType,
			ReferenceID:      input.ReferenceID,
			Notes:            input.Notes,
		}); err != nil {
			return err
		}
		if newQty <= current.ReorderLevel && s.notifier != nil {
			if err := s.notifier.LowStock(ctx, current.ID, current.Name, newQty); err != nil {
				return fmt.Errorf("inventory: low stock notification: %w", err)
			}
			if s.metrics != nil {
				s.metrics.LowStockAlert()
			}
		}
		if s.audit != nil {
			if err := s.audit.Record(ctx, shared.AuditLog{
				ActorID:  input.ActorID,
				Action:   "inventory:" + string(input.ChangeType),
				Entity:   "product",
				EntityID: strconv.FormatInt(current.ID, 10),
				Meta: map[string]any{
					"previous": current.StockQuantity,
					"delta":    input.Delta,
					"new":      newQty,
				},
			}); err != nil {
				return err
			}
		}
		current.StockQuantity = newQty
		product = current
		return nil
	})
	if s.metrics != nil {
		s.metrics.StockAdjusted(string(input.ChangeType), err)
	}
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return product, nil
}

// invalidate bumps the dashboard version. Enclosing units of work bump again
// after their own commit.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("inventory: cache bump failed", slog.Any("error", err))
	}
}

// ListMovements returns stock log entries, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ChangeType != "" && !filter.ChangeType.Valid() {
		return nil, shared.NewValidationError("change_type", "must be one of purchase sale adjustment return")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, shared.NewValidationError("end_date", "must not be before start_date")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultMovementLimit
	case filter.Limit > maxMovementLimit:
		filter.Limit = maxMovementLimit
	}
	return s.repo.ListMovements(ctx, filter)
}

// ProductHistory returns a product's movements after checking it exists.
func (s *Service) ProductHistory(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.ListMovements(ctx, MovementFilter{ProductID: &productID, Limit: limit})
}

// Summary aggregates movements in [from, to].
func (s *Service) Summary(ctx context.Context, from, to *time.Time) (Summary, error) {
	if from != nil && to != nil && to.Before(*from) {
		return Summary{}, shared.NewValidationError("end_date", "must not be before start_date")
	}
	return s.repo.Summarize(ctx, from, to)
}

// VerifyLedger replays a product's movements from zero and compares the
// result with the stored stock quantity.
func (s *Service) VerifyLedger(ctx context.Context, productID int64) (LedgerCheck, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return LedgerCheck{}, err
	}
	movements, err := s.repo.ProductMovements(ctx, productID)
	if err != nil {
		return LedgerCheck{}, err
	}
	return Replay(product, movements), nil
}

// VerifyAll replays every product and returns the inconsistent ones.
func (s *Service) VerifyAll(ctx context.Context) ([]LedgerCheck, int, error) {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return nil, 0, err
	}
	var drift []LedgerCheck
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drift, 0, err
		}
		check, err := s.VerifyLedger(ctx, id)
		if err != nil {
			return drift, 0, err
		}
		if !check.Consistent {
			drift = append(drift, check)
		}
	}
	return drift, len(ids), nil
}

// Replay folds movements in id order starting from zero. Each entry must
// start where the previous one ended and the final quantity must equal stock.
func Replay(product Product, movements []Movement) LedgerCheck {
	check := LedgerCheck{ProductID: product.ID, StockQuantity: product.StockQuantity, Movements: len(movements)}
	running := 0
	for _, m := range movements {
		if m.PreviousQuantity != running {
			check.ChainBreaks++
		}
		if m.PreviousQuantity+m.ChangeQuantity != m.NewQuantity {
			check.ChainBreaks++
		}
		running += m.ChangeQuantity
	}
	check.Replayed = running
	check.Consistent = check.ChainBreaks == 0 && running == product.StockQuantity
	switch {
	case check.ChainBreaks > 0:
		check.Detail = fmt.Sprintf("%d broken links in movement chain", check.ChainBreaks)
	case !check.Consistent:
		check.Detail = fmt.Sprintf("replayed %d but stock is %d", running, product.StockQuantity)
	}
	return check
}
