// Package memstore holds in-memory repositories for cross-package service
// tests. Each store implements memtx.Snapshotter so failed units roll back.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/shared"
)

// Inventory implements inventory.RepositoryPort.
type Inventory struct {
	mu        sync.Mutex
	products  map[int64]inventory.Product
	movements []inventory.Movement
	nextID    int64
}

func NewInventory(products ...inventory.Product) *Inventory {
	s := &Inventory{products: make(map[int64]inventory.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *Inventory) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := maps.Clone(s.products)
	movements := append([]inventory.Movement(nil), s.movements...)
	nextID := s.nextID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.products = products
		s.movements = movements
		s.nextID = nextID
	}
}

// Stock returns the current quantity of a product.
func (s *Inventory) Stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

// Movements returns a copy of the ledger in append order.
func (s *Inventory) Movements() []inventory.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.Movement(nil), s.movements...)
}

// Name returns the product name and whether the product exists.
func (s *Inventory) Name(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p.Name, ok
}

func (s *Inventory) GetProduct(_ context.Context, id int64) (inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return inventory.Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return p, nil
}

func (s *Inventory) GetProductForUpdate(ctx context.Context, id int64) (inventory.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *Inventory) UpdateStock(_ context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	s.products[productID] = p
	return nil
}

func (s *Inventory) InsertMovement(_ context.Context, m inventory.Movement) (inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.ProductName = s.products[m.ProductID].Name
	m.CreatedAt = time.Now()
	s.movements = append(s.movements, m)
	return m, nil
}

func (s *Inventory) ListMovements(_ context.Context, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Movement
	for i := len(s.movements) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		m := s.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.ChangeType != "" && m.ChangeType != filter.ChangeType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Inventory) ProductMovements(_ context.Context, productID int64) ([]inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Movement
	for _, m := range s.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Inventory) Summarize(context.Context, *time.Time, *time.Time) (inventory.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return inventory.Summary{TotalMovements: len(s.movements)}, nil
}

func (s *Inventory) ListProductIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
