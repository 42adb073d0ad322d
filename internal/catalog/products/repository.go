package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters catalog.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	Dependents(ctx context.Context, id int64) (orderLines, stockLogs int, err error)
	SupplierExists(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectProduct = `SELECT p.id, p.name, p.sku, p.category, p.description, p.unit_price, p.stock_quantity,
       p.reorder_level, p.supplier_id, COALESCE(s.name, ''), p.status, p.created_at, p.updated_at
FROM products p LEFT JOIN suppliers s ON s.id = p.supplier_id`

var sortColumns = map[string]string{
	"name":           "p.name",
	"sku":            "p.sku",
	"category":       "p.category",
	"unit_price":     "p.unit_price",
	"stock_quantity": "p.stock_quantity",
	"created_at":     "p.created_at",
}

func scan(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Description, &p.UnitPrice, &p.StockQuantity,
		&p.ReorderLevel, &p.SupplierID, &p.SupplierName, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filters catalog.ListFilters) ([]Product, int, error) {
	var where catalog.Where
	if filters.Category != "" {
		where.Add("p.category = $%d", filters.Category)
	}
	if filters.SupplierID != nil {
		where.Add("p.supplier_id = $%d", *filters.SupplierID)
	}
	if filters.Status != "" {
		where.Add("p.status = $%d", filters.Status)
	}
	if filters.LowStock {
		where.AddRaw("p.stock_quantity <= p.reorder_level")
	}
	if filters.Search != "" {
		where.Add("(p.name ILIKE $%d OR p.sku ILIKE $%d OR p.description ILIKE $%d OR p.category ILIKE $%d)", "%"+filters.Search+"%")
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectProduct + where.SQL() +
		` ORDER BY ` + catalog.SortOrder(filters.SortBy, filters.SortDir, sortColumns, "p.name") + `, p.id`
	query += ` LIMIT ` + where.Next(filters.Limit) + ` OFFSET ` + where.Next(filters.Offset())

	rows, err := conn.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
	}
	return p, err
}

// Create inserts the product with zero stock.
func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO products
(name, sku, category, description, unit_price, stock_quantity, reorder_level, supplier_id, status)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
RETURNING id, created_at, updated_at`,
		p.Name, p.SKU, p.Category, p.Description, p.UnitPrice, p.ReorderLevel, p.SupplierID, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, db.Translate(err)
	}
	p.StockQuantity = 0
	return p, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE products SET
name = $2, sku = $3, category = $4, description = $5, unit_price = $6, reorder_level = $7,
supplier_id = $8, status = $9, updated_at = NOW()
WHERE id = $1`,
		id, p.Name, p.SKU, p.Category, p.Description, p.UnitPrice, p.ReorderLevel, p.SupplierID, p.Status)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var ri *shared.ReferentialIntegrityError
		if translated := db.Translate(err); errors.As(translated, &ri) {
			return &shared.ReferentialIntegrityError{Entity: "product", ID: id, Dependents: "order lines or stock logs"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (r *repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *repository) Dependents(ctx context.Context, id int64) (int, int, error) {
	var lines, logs int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM order_details WHERE product_id = $1),
  (SELECT COUNT(*) FROM stock_logs WHERE product_id = $1)`, id).Scan(&lines, &logs)
	return lines, logs, err
}

func (r *repository) SupplierExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
