package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository persists orders and their lines.
type Repository interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, order Order) (Order, error)
	InsertLine(ctx context.Context, line Line) (Line, error)
	Get(ctx context.Context, id int64) (Order, error)
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	Lines(ctx context.Context, orderID int64) ([]Line, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectOrder = `SELECT o.id, o.customer_id, c.name, o.user_id, o.status, o.total_amount,
       o.shipping_address, o.shipping_city, o.shipping_state, o.shipping_postal_code, o.shipping_country,
       o.notes, o.order_date, o.updated_at
FROM orders o JOIN customers c ON c.id = o.customer_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.UserID, &o.Status, &o.TotalAmount,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Notes, &o.OrderDate, &o.UpdatedAt)
	return o, err
}

func (r *repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) Insert(ctx context.Context, o Order) (Order, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO orders
(customer_id, user_id, status, total_amount, shipping_address, shipping_city, shipping_state,
 shipping_postal_code, shipping_country, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, order_date, updated_at`,
		o.CustomerID, o.UserID, o.Status, o.TotalAmount, o.Shipping.Address, o.Shipping.City, o.Shipping.State,
		o.Shipping.PostalCode, o.Shipping.Country, o.Notes,
	).Scan(&o.ID, &o.OrderDate, &o.UpdatedAt)
	if err != nil {
		return Order{}, db.Translate(err)
	}
	return o, nil
}

func (r *repository) InsertLine(ctx context.Context, l Line) (Line, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO order_details
(order_id, line_no, product_id, quantity, unit_price, discount, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		l.OrderID, l.LineNo, l.ProductID, l.Quantity, l.UnitPrice, l.Discount, l.Subtotal,
	).Scan(&l.ID)
	if err != nil {
		translated := db.Translate(err)
		var ri *shared.ReferentialIntegrityError
		if errors.As(translated, &ri) {
			return Line{}, &shared.NotFoundError{Entity: "product", ID: l.ProductID}
		}
		return Line{}, translated
	}
	return l, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, &shared.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return Order{}, err
	}
	o.Lines, err = r.Lines(ctx, id)
	return o, err
}

// GetForUpdate locks the order header row.
func (r *repository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, selectOrder+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, &shared.NotFoundError{Entity: "order", ID: id}
	}
	return o, db.Translate(err)
}

func (r *repository) Lines(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT d.id, d.order_id, d.line_no, d.product_id, p.name,
       d.quantity, d.unit_price, d.discount, d.subtotal
FROM order_details d JOIN products p ON p.id = d.product_id
WHERE d.order_id = $1 ORDER BY d.line_no`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineNo, &l.ProductID, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.Discount, &l.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var where catalog.Where
	if filter.Status != "" {
		where.Add("o.status = $%d", filter.Status)
	}
	if filter.CustomerID != nil {
		where.Add("o.customer_id = $%d", *filter.CustomerID)
	}
	if filter.From != nil {
		where.Add("o.order_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.Add("o.order_date <= $%d", *filter.To)
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	query := selectOrder + where.SQL() + ` ORDER BY o.order_date DESC, o.id DESC` +
		` LIMIT ` + where.Next(filter.Limit) + ` OFFSET ` + where.Next(offset)
	rows, err := conn.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}

// Delete removes the order with its lines and payments.
func (r *repository) Delete(ctx context.Context, id int64) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM order_details WHERE order_id = $1`, id); err != nil {
		return db.Translate(err)
	}
	if _, err := conn.Exec(ctx, `DELETE FROM payments WHERE order_id = $1`, id); err != nil {
		return db.Translate(err)
	}
	tag, err := conn.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}
