package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/shared"
)

// Orders implements orders.Repository. Product names and existence come from
// the linked Inventory store.
type Orders struct {
	mu        sync.Mutex
	customers map[int64]string
	inventory *Inventory
	payments  *Payments
	orders    map[int64]orders.Order
	lines     map[int64][]orders.Line
	nextOrder int64
	nextLine  int64
}

func NewOrders(inventory *Inventory, customers map[int64]string) *Orders {
	return &Orders{
		customers: maps.Clone(customers),
		inventory: inventory,
		orders:    make(map[int64]orders.Order),
		lines:     make(map[int64][]orders.Line),
	}
}

func (s *Orders) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := maps.Clone(s.orders)
	lines := make(map[int64][]orders.Line, len(s.lines))
	for k, v := range s.lines {
		lines[k] = slices.Clone(v)
	}
	nextOrder, nextLine := s.nextOrder, s.nextLine
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.orders = saved
		s.lines = lines
		s.nextOrder, s.nextLine = nextOrder, nextLine
	}
}

// Count returns the number of stored orders.
func (s *Orders) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// LineCount returns the number of stored order lines.
func (s *Orders) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += len(l)
	}
	return n
}

// Header returns a stored order header without lines.
func (s *Orders) Header(id int64) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *Orders) CustomerExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.customers[id]
	return ok, nil
}

func (s *Orders) Insert(_ context.Context, o orders.Order) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrder++
	o.ID = s.nextOrder
	o.CustomerName = s.customers[o.CustomerID]
	o.OrderDate = time.Now()
	o.UpdatedAt = o.OrderDate
	o.Lines = nil
	s.orders[o.ID] = o
	return o, nil
}

func (s *Orders) InsertLine(_ context.Context, l orders.Line) (orders.Line, error) {
	name, ok := s.inventory.Name(l.ProductID)
	if !ok {
		return orders.Line{}, &shared.NotFoundError{Entity: "product", ID: l.ProductID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[l.OrderID]; !ok {
		return orders.Line{}, &shared.NotFoundError{Entity: "order", ID: l.OrderID}
	}
	s.nextLine++
	l.ID = s.nextLine
	l.ProductName = name
	s.lines[l.OrderID] = append(s.lines[l.OrderID], l)
	return l, nil
}

func (s *Orders) Get(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, &shared.NotFoundError{Entity: "order", ID: id}
	}
	o.Lines = slices.Clone(s.lines[id])
	return o, nil
}

func (s *Orders) GetForUpdate(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, &shared.NotFoundError{Entity: "order", ID: id}
	}
	return o, nil
}

func (s *Orders) Lines(_ context.Context, orderID int64) ([]orders.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines[orderID]), nil
}

func (s *Orders) List(_ context.Context, filter orders.ListFilter) ([]orders.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []orders.Order
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (s *Orders) UpdateStatus(_ context.Context, id int64, status orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return &shared.NotFoundError{Entity: "order", ID: id}
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

// Delete removes the order, its lines and, when linked, its payments.
func (s *Orders) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.orders[id]; !ok {
		s.mu.Unlock()
		return &shared.NotFoundError{Entity: "order", ID: id}
	}
	delete(s.orders, id)
	delete(s.lines, id)
	payments := s.payments
	s.mu.Unlock()
	if payments != nil {
		payments.deleteForOrder(id)
	}
	return nil
}
