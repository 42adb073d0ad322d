package suppliers

import (
	"context"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters catalog.ListFilters) ([]Supplier, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req SupplierRequest) (Supplier, error) {
	if err := shared.Validate(req); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, req.toSupplier())
}

func (s *Service) Update(ctx context.Context, id int64, req SupplierRequest) (Supplier, error) {
	if err := shared.Validate(req); err != nil {
		return Supplier{}, err
	}
	return s.repo.Update(ctx, id, req.toSupplier())
}

// Delete removes a supplier that no product references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &shared.ReferentialIntegrityError{Entity: "supplier", ID: id, Dependents: "products", Count: count}
	}
	return s.repo.Delete(ctx, id)
}

// Products lists the products a supplier provides.
func (s *Service) Products(ctx context.Context, id int64) ([]SupplierProduct, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Products(ctx, id)
}
