package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, sku, stock_quantity, reorder_level, updated_at`

func scanProduct(row pgx.Row, id int64) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.StockQuantity, &p.ReorderLevel, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return p, err
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row, id)
}

// GetProductForUpdate locks the product row for the rest of the transaction.
func (r *Repository) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	p, err := scanProduct(row, id)
	if err != nil {
		return Product{}, db.Translate(err)
	}
	return p, nil
}

func (r *Repository) UpdateStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE products SET stock_quantity = $2, updated_at = NOW() WHERE id = $1`, productID, quantity)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: productID}
	}
	return nil
}

func (r *Repository) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO stock_logs
(product_id, user_id, change_quantity, previous_quantity, new_quantity, change_type, reference_id, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`,
		m.ProductID, m.UserID, m.ChangeQuantity, m.PreviousQuantity, m.NewQuantity, m.ChangeType, m.ReferenceID, m.Notes,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Movement{}, db.Translate(err)
	}
	return m, nil
}

const movementColumns = `l.id, l.product_id, p.name, l.user_id, l.change_quantity, l.previous_quantity,
l.new_quantity, l.change_type, l.reference_id, l.notes, l.created_at`

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.UserID, &m.ChangeQuantity, &m.PreviousQuantity,
			&m.NewQuantity, &m.ChangeType, &m.ReferenceID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProductID != nil {
		add("l.product_id = $%d", *filter.ProductID)
	}
	if filter.UserID != nil {
		add("l.user_id = $%d", *filter.UserID)
	}
	if filter.ChangeType != "" {
		add("l.change_type = $%d", filter.ChangeType)
	}
	if filter.From != nil {
		add("l.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("l.created_at <= $%d", *filter.To)
	}
	query := `SELECT ` + movementColumns + ` FROM stock_logs l JOIN products p ON p.id = l.product_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY l.created_at DESC, l.id DESC LIMIT $%d", len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

// ProductMovements returns the full history of a product in id order.
func (r *Repository) ProductMovements(ctx context.Context, productID int64) ([]Movement, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+movementColumns+`
FROM stock_logs l JOIN products p ON p.id = l.product_id
WHERE l.product_id = $1 ORDER BY l.id`, productID)
	if err != nil {
		return nil, err
	}
	return scanMovements(rows)
}

func (r *Repository) Summarize(ctx context.Context, from, to *time.Time) (Summary, error) {
	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `SELECT change_type,
       COUNT(*),
       COALESCE(SUM(change_quantity) FILTER (WHERE change_quantity > 0), 0),
       COALESCE(-SUM(change_quantity) FILTER (WHERE change_quantity < 0), 0),
       COALESCE(SUM(change_quantity), 0)
FROM stock_logs
WHERE ($1::timestamptz IS NULL OR created_at >= $1)
  AND ($2::timestamptz IS NULL OR created_at <= $2)
GROUP BY change_type
ORDER BY change_type`, from, to)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	var summary Summary
	for rows.Next() {
		var ts TypeSummary
		if err := rows.Scan(&ts.ChangeType, &ts.Movements, &ts.Additions, &ts.Reductions, &ts.NetChange); err != nil {
			return Summary{}, err
		}
		summary.TotalMovements += ts.Movements
		summary.ByType = append(summary.ByType, ts)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	err = conn.QueryRow(ctx, `SELECT COUNT(DISTINCT product_id), COUNT(DISTINCT user_id)
FROM stock_logs
WHERE ($1::timestamptz IS NULL OR created_at >= $1)
  AND ($2::timestamptz IS NULL OR created_at <= $2)`, from, to).Scan(&summary.ActiveProducts, &summary.ActiveUsers)
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (r *Repository) ListProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
