package products

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/shared"
)

// Transactor runs a unit of work carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// StockAdjuster is the ledger entry point used to book initial stock.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, input inventory.AdjustInput) (inventory.Product, error)
}

// Invalidator refreshes cached summaries after catalog changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

const maxSearchResults = 50

type Service struct {
	tx     Transactor
	repo   Repository
	stock  StockAdjuster
	cache  Invalidator
	logger *slog.Logger
}

func NewService(tx Transactor, repo Repository, stock StockAdjuster, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tx: tx, repo: repo, stock: stock, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, filters catalog.ListFilters) ([]Product, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Search matches name, SKU, description and category.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, shared.NewValidationError("q", "is required")
	}
	items, _, err := s.repo.List(ctx, catalog.ListFilters{Search: term, Page: 1, Limit: maxSearchResults, SortDir: catalog.SortAsc})
	return items, err
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// Create inserts the product and books any initial stock as a purchase in
// the same unit of work.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Product, error) {
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	if err := validatePrice(req.UnitPrice); err != nil {
		return Product{}, err
	}
	var created Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
			return err
		}
		p, err := s.repo.Create(ctx, req.toProduct())
		if err != nil {
			return err
		}
		if req.StockQuantity > 0 {
			if _, err := s.stock.AdjustStock(ctx, inventory.AdjustInput{
				ProductID:  p.ID,
				Delta:      req.StockQuantity,
				ActorID:    shared.ActorID(ctx),
				ChangeType: inventory.ChangePurchase,
				Notes:      "Initial stock",
			}); err != nil {
				return err
			}
		}
		created, err = s.repo.Get(ctx, p.ID)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return created, nil
}

// Update edits attributes. Stock quantity is never touched.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Product, error) {
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	if err := validatePrice(req.UnitPrice); err != nil {
		return Product{}, err
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, req.toProduct()); err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a product that has no order lines and no stock history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	lines, logs, err := s.repo.Dependents(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case lines > 0:
		return &shared.ReferentialIntegrityError{Entity: "product", ID: id, Dependents: "order lines", Count: lines}
	case logs > 0:
		return &shared.ReferentialIntegrityError{Entity: "product", ID: id, Dependents: "stock logs", Count: logs}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) checkSupplier(ctx context.Context, supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	ok, err := s.repo.SupplierExists(ctx, *supplierID)
	if err != nil {
		return err
	}
	if !ok {
		return &shared.NotFoundError{Entity: "supplier", ID: *supplierID}
	}
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("products: cache bump failed", slog.Any("error", err))
	}
}
