package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/shared"
	"github.com/sioms/sioms/internal/testing/memtx"
)

type memoryRepo struct {
	products  map[int64]Product
	suppliers map[int64]bool
	lines     map[int64]int
	logs      map[int64]int
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  map[int64]Product{},
		suppliers: map[int64]bool{},
		lines:     map[int64]int{},
		logs:      map[int64]int{},
	}
}

func (r *memoryRepo) Snapshot() func() {
	products := make(map[int64]Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	logs := make(map[int64]int, len(r.logs))
	for k, v := range r.logs {
		logs[k] = v
	}
	nextID := r.nextID
	return func() {
		r.products = products
		r.logs = logs
		r.nextID = nextID
	}
}

func (r *memoryRepo) List(_ context.Context, filters catalog.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if filters.LowStock && !p.LowStock() {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return p, nil
}

func (r *memoryRepo) Create(_ context.Context, p Product) (Product, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, p Product) error {
	current, ok := r.products[id]
	if !ok {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	p.ID = id
	p.StockQuantity = current.StockQuantity
	r.products[id] = p
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) Categories(context.Context) ([]string, error) {
	return []string{"tools"}, nil
}

func (r *memoryRepo) Dependents(_ context.Context, id int64) (int, int, error) {
	return r.lines[id], r.logs[id], nil
}

func (r *memoryRepo) SupplierExists(_ context.Context, id int64) (bool, error) {
	return r.suppliers[id], nil
}

// ledgerStub books stock straight onto the memory repo.
type ledgerStub struct {
	repo  *memoryRepo
	calls []inventory.AdjustInput
	err   error
}

func (l *ledgerStub) AdjustStock(_ context.Context, input inventory.AdjustInput) (inventory.Product, error) {
	l.calls = append(l.calls, input)
	if l.err != nil {
		return inventory.Product{}, l.err
	}
	p := l.repo.products[input.ProductID]
	p.StockQuantity += input.Delta
	l.repo.products[input.ProductID] = p
	l.repo.logs[input.ProductID]++
	return inventory.Product{ID: p.ID, StockQuantity: p.StockQuantity}, nil
}

func newTestService() (*Service, *memoryRepo, *ledgerStub) {
	repo := newMemoryRepo()
	ledger := &ledgerStub{repo: repo}
	return NewService(memtx.New(repo), repo, ledger, nil, nil), repo, ledger
}

func validCreate() CreateRequest {
	return CreateRequest{
		Name:          "Widget",
		SKU:           "w-100",
		UnitPrice:     decimal.RequireFromString("10.005"),
		StockQuantity: 12,
		ReorderLevel:  5,
	}
}

func TestCreateBooksInitialStockThroughLedger(t *testing.T) {
	svc, repo, ledger := newTestService()
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 4})

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.Equal(t, 12, p.StockQuantity)
	assert.Equal(t, "W-100", p.SKU)
	assert.Equal(t, "active", p.Status)
	assert.True(t, decimal.RequireFromString("10.01").Equal(p.UnitPrice))

	require.Len(t, ledger.calls, 1)
	assert.Equal(t, inventory.ChangePurchase, ledger.calls[0].ChangeType)
	assert.Equal(t, 12, ledger.calls[0].Delta)
	assert.Equal(t, int64(4), ledger.calls[0].ActorID)
	assert.Equal(t, 1, repo.logs[p.ID])
}

func TestCreateWithoutStockSkipsLedger(t *testing.T) {
	svc, _, ledger := newTestService()
	req := validCreate()
	req.StockQuantity = 0

	p, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)
	assert.Empty(t, ledger.calls)
}

func TestCreateRollsBackWhenLedgerFails(t *testing.T) {
	svc, repo, ledger := newTestService()
	ledger.err = errors.New("boom")

	_, err := svc.Create(context.Background(), validCreate())
	require.Error(t, err)
	assert.Empty(t, repo.products)
}

func TestCreateValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	req := validCreate()
	req.UnitPrice = decimal.RequireFromString("-1")
	_, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validCreate()
	req.StockQuantity = -3
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validCreate()
	req.StockQuantity = inventory.MaxQuantity + 1
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validCreate()
	req.UnitPrice = decimal.RequireFromString("10000000000")
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validCreate()
	req.SKU = ""
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = validCreate()
	missing := int64(77)
	req.SupplierID = &missing
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, shared.ErrNotFound)

	assert.Empty(t, repo.products)
}

func TestUpdateNeverTouchesStock(t *testing.T) {
	svc, repo, ledger := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Name: "Widget v2", SKU: "W-100", UnitPrice: decimal.NewFromInt(11), ReorderLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 12, updated.StockQuantity)
	assert.Equal(t, 12, repo.products[p.ID].StockQuantity)
	assert.Len(t, ledger.calls, 1)
}

func TestDeleteRejectedWithHistory(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	err = svc.Delete(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrReferentialIntegrity)
	assert.Contains(t, err.Error(), "stock logs")

	repo.lines[p.ID] = 2
	err = svc.Delete(ctx, p.ID)
	assert.Contains(t, err.Error(), "order lines")

	req := validCreate()
	req.StockQuantity = 0
	bare, err := svc.Create(ctx, req)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, bare.ID))
	require.ErrorIs(t, svc.Delete(ctx, bare.ID), shared.ErrNotFound)
}

func TestSearchRequiresTerm(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Search(context.Background(), "  ")
	require.ErrorIs(t, err, shared.ErrValidation)
}
