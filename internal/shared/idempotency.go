package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by the shared stores. Both pools and
// transactions satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConnFunc resolves the connection for ctx, preferring an open transaction.
type ConnFunc func(ctx context.Context) Querier

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	conn ConnFunc
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(conn ConnFunc) *IdempotencyStore {
	return &IdempotencyStore{conn: conn}
}

// ErrIdempotencyConflict indicates a duplicate key that lost the insert race.
var ErrIdempotencyConflict = &ConflictError{Reason: "idempotent request already processed"}

// Lookup returns the reference recorded for key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, key, module string) (int64, bool, error) {
	if s == nil {
		return 0, false, errors.New("idempotency store not initialised")
	}
	var refID *int64
	err := s.conn(ctx).QueryRow(ctx, `SELECT ref_id FROM idempotency_keys WHERE key=$1 AND module=$2`, key, module).Scan(&refID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if refID == nil {
		return 0, true, nil
	}
	return *refID, true, nil
}

// Insert records key for module. Call it inside the unit of work it guards so
// a rollback releases the key.
func (s *IdempotencyStore) Insert(ctx context.Context, key, module string, refID int64) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.conn(ctx).Exec(ctx, `INSERT INTO idempotency_keys (key, module, ref_id, created_at) VALUES ($1, $2, $3, $4)`, key, module, refID, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
