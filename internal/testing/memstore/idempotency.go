package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/sioms/sioms/internal/shared"
)

type idemKey struct{ key, module string }

// Idempotency mirrors shared.IdempotencyStore.
type Idempotency struct {
	mu   sync.Mutex
	keys map[idemKey]int64
	// BeforeInsert, when set, runs at the start of Insert. Tests use it to
	// simulate a concurrent request committing the same key first.
	BeforeInsert func(key, module string)
}

func NewIdempotency() *Idempotency {
	return &Idempotency{keys: make(map[idemKey]int64)}
}

func (s *Idempotency) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := maps.Clone(s.keys)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.keys = saved
	}
}

// Put records a key outside any unit of work.
func (s *Idempotency) Put(key, module string, refID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[idemKey{key, module}] = refID
}

func (s *Idempotency) Lookup(_ context.Context, key, module string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.keys[idemKey{key, module}]
	return ref, ok, nil
}

func (s *Idempotency) Insert(_ context.Context, key, module string, refID int64) error {
	if s.BeforeInsert != nil {
		s.BeforeInsert(key, module)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idemKey{key, module}
	if _, ok := s.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	s.keys[k] = refID
	return nil
}
