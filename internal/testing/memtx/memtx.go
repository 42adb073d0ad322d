// Package memtx provides an in-memory unit of work for service tests.
package memtx

import (
	"context"
	"sync"
)

// Snapshotter captures state and returns a function that restores it.
type Snapshotter interface {
	Snapshot() (restore func())
}

type txKey struct{}

// Transactor serialises units of work behind one mutex and rolls registered
// stores back when fn fails. Nested calls join the outer unit.
type Transactor struct {
	mu     sync.Mutex
	stores []Snapshotter
	// Commits counts successful outermost units.
	Commits int
	// Rollbacks counts failed outermost units.
	Rollbacks int
}

// New builds a Transactor covering the given stores.
func New(stores ...Snapshotter) *Transactor {
	return &Transactor{stores: stores}
}

// Register adds stores to the rollback set.
func (t *Transactor) Register(stores ...Snapshotter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stores = append(t.stores, stores...)
}

// WithinTx runs fn as one unit of work.
func (t *Transactor) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.Snapshot())
	}
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		t.Rollbacks++
		return err
	}
	t.Commits++
	return nil
}

// InTx reports whether ctx is inside a unit of work.
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}
