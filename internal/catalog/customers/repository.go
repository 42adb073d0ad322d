package customers

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
	List(ctx context.Context, filters catalog.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, id int64, customer Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
	CountOrders(ctx context.Context, id int64) (int, error)
	Orders(ctx context.Context, id int64) ([]CustomerOrder, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, email, phone, address, city, state, postal_code, country, status, created_at, updated_at`

var sortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"city":       "city",
	"created_at": "created_at",
}

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.PostalCode,
		&c.Country, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, filters catalog.ListFilters) ([]Customer, int, error) {
	var where catalog.Where
	if filters.Status != "" {
		where.Add("status = $%d", filters.Status)
	}
	if filters.Search != "" {
		where.Add("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", "%"+filters.Search+"%")
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM customers` + where.SQL() +
		` ORDER BY ` + catalog.SortOrder(filters.SortBy, filters.SortDir, sortColumns, "name")
	query += ` LIMIT ` + where.Next(filters.Limit) + ` OFFSET ` + where.Next(filters.Offset())

	rows, err := conn.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO customers
(name, email, phone, address, city, state, postal_code, country, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+columns,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.PostalCode, c.Country, c.Status)
	created, err := scan(row)
	return created, db.Translate(err)
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) (Customer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE customers SET
name = $2, email = $3, phone = $4, address = $5, city = $6, state = $7, postal_code = $8,
country = $9, status = $10, updated_at = NOW()
WHERE id = $1
RETURNING `+columns,
		id, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.PostalCode, c.Country, c.Status)
	updated, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return updated, db.Translate(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		var ri *shared.ReferentialIntegrityError
		if translated := db.Translate(err); errors.As(translated, &ri) {
			return &shared.ReferentialIntegrityError{Entity: "customer", ID: id, Dependents: "orders"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return nil
}

func (r *repository) CountOrders(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Orders(ctx context.Context, id int64) ([]CustomerOrder, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT o.id, o.status, o.total_amount,
       (SELECT COUNT(*) FROM order_details d WHERE d.order_id = o.id), o.order_date
FROM orders o WHERE o.customer_id = $1 ORDER BY o.order_date DESC, o.id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CustomerOrder
	for rows.Next() {
		var o CustomerOrder
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount, &o.Items, &o.OrderDate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
