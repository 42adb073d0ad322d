package customers

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

func (s *Service) List(ctx context.Context, filters catalog.ListFilters) ([]Customer, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CustomerRequest) (Customer, error) {
	if err := shared.Validate(req); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, req.toCustomer())
}

func (s *Service) Update(ctx context.Context, id int64, req CustomerRequest) (Customer, error) {
	if err := shared.Validate(req); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, req.toCustomer())
}

// Delete removes a customer with no orders.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountOrders(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &shared.ReferentialIntegrityError{Entity: "customer", ID: id, Dependents: "orders", Count: count}
	}
	return s.repo.Delete(ctx, id)
}

// Orders lists a customer's orders, newest first.
func (s *Service) Orders(ctx context.Context, id int64) ([]CustomerOrder, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Orders(ctx, id)
}
