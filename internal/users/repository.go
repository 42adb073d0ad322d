package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, username, email, full_name, role, status, password_hash, created_at, last_login FROM users`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.Status, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	return u, err
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		return scanUser(row)
	})
}

func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, &shared.NotFoundError{Entity: "user", ID: id}
	}
	return u, err
}

// Upsert inserts the user or refreshes an existing one with the same username.
func (r *Repository) Upsert(ctx context.Context, u User) (User, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO users (username, email, full_name, role, password_hash)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name,
    role = EXCLUDED.role, password_hash = EXCLUDED.password_hash
RETURNING id, status, created_at`,
		u.Username, u.Email, u.FullName, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.Status, &u.CreatedAt)
	if err != nil {
		return User{}, db.Translate(err)
	}
	return u, nil
}
