package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/payments"
	"github.com/sioms/sioms/internal/shared"
)

// Payments implements payments.Repository against a linked Orders store.
type Payments struct {
	mu       sync.Mutex
	orders   *Orders
	payments map[int64]payments.Payment
	nextID   int64
	// Now stamps inserted payments; defaults to time.Now.
	Now func() time.Time
}

// NewPayments builds the store and links it to orders so order deletes
// cascade to payments.
func NewPayments(o *Orders) *Payments {
	s := &Payments{orders: o, payments: make(map[int64]payments.Payment), Now: time.Now}
	o.mu.Lock()
	o.payments = s
	o.mu.Unlock()
	return s
}

func (s *Payments) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := maps.Clone(s.payments)
	nextID := s.nextID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.payments = saved
		s.nextID = nextID
	}
}

// Count returns the number of stored payments.
func (s *Payments) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *Payments) deleteForOrder(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.payments, func(_ int64, p payments.Payment) bool { return p.OrderID == orderID })
}

func (s *Payments) GetOrder(_ context.Context, orderID int64) (payments.OrderRef, error) {
	o, ok := s.orders.Header(orderID)
	if !ok {
		return payments.OrderRef{}, &shared.NotFoundError{Entity: "order", ID: orderID}
	}
	return payments.OrderRef{ID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount}, nil
}

func (s *Payments) LockOrder(ctx context.Context, orderID int64) (payments.OrderRef, error) {
	return s.GetOrder(ctx, orderID)
}

func (s *Payments) Insert(_ context.Context, p payments.Payment) (payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	p.PaymentDate = s.Now()
	p.UpdatedAt = p.PaymentDate
	s.payments[p.ID] = p
	return p, nil
}

func (s *Payments) Get(_ context.Context, id int64) (payments.Payment, error) {
	s.mu.Lock()
	p, ok := s.payments[id]
	s.mu.Unlock()
	if !ok {
		return payments.Payment{}, &shared.NotFoundError{Entity: "payment", ID: id}
	}
	return s.decorate(p), nil
}

func (s *Payments) decorate(p payments.Payment) payments.Payment {
	if o, ok := s.orders.Header(p.OrderID); ok {
		p.CustomerName = o.CustomerName
		p.OrderTotal = o.TotalAmount
	}
	return p
}

func (s *Payments) UpdateStatus(_ context.Context, id int64, status payments.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return &shared.NotFoundError{Entity: "payment", ID: id}
	}
	p.Status = status
	p.UpdatedAt = s.Now()
	s.payments[id] = p
	return nil
}

func (s *Payments) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return &shared.NotFoundError{Entity: "payment", ID: id}
	}
	delete(s.payments, id)
	return nil
}

func (s *Payments) sorted(match func(payments.Payment) bool) []payments.Payment {
	s.mu.Lock()
	var out []payments.Payment
	for _, p := range s.payments {
		if match(p) {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	for i := range out {
		out[i] = s.decorate(out[i])
	}
	return out
}

func (s *Payments) List(_ context.Context, filter payments.ListFilter) ([]payments.Payment, int, error) {
	matched := s.sorted(func(p payments.Payment) bool {
		switch {
		case filter.OrderID != nil && p.OrderID != *filter.OrderID:
			return false
		case filter.Method != "" && p.Method != filter.Method:
			return false
		case filter.Status != "" && p.Status != filter.Status:
			return false
		}
		return true
	})
	total := len(matched)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (s *Payments) ListByOrder(_ context.Context, orderID int64) ([]payments.Payment, error) {
	return s.sorted(func(p payments.Payment) bool { return p.OrderID == orderID }), nil
}

func (s *Payments) CompletedTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, p := range s.payments {
		if p.OrderID == orderID && p.Status == payments.StatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (s *Payments) Statistics(_ context.Context, from, to time.Time) (payments.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := payments.Statistics{From: from, To: to}
	byMethod := map[string]*payments.Bucket{}
	byStatus := map[string]*payments.Bucket{}
	add := func(m map[string]*payments.Bucket, key string, amount decimal.Decimal) {
		b, ok := m[key]
		if !ok {
			b = &payments.Bucket{Key: key}
			m[key] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(amount)
	}
	for _, p := range s.payments {
		if p.PaymentDate.Before(from) || !p.PaymentDate.Before(to) {
			continue
		}
		add(byStatus, string(p.Status), p.Amount)
		if p.Status == payments.StatusCompleted {
			stats.TotalPayments++
			stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
			add(byMethod, string(p.Method), p.Amount)
		}
	}
	stats.ByMethod = flatten(byMethod)
	stats.ByStatus = flatten(byStatus)
	return stats, nil
}

func flatten(m map[string]*payments.Bucket) []payments.Bucket {
	out := make([]payments.Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
