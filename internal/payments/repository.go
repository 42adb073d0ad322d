package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository persists payments.
type Repository interface {
	GetOrder(ctx context.Context, orderID int64) (OrderRef, error)
	LockOrder(ctx context.Context, orderID int64) (OrderRef, error)
	Insert(ctx context.Context, p Payment) (Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Payment, int, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	CompletedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	Statistics(ctx context.Context, from, to time.Time) (Statistics, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectPayment = `SELECT p.id, p.order_id, c.name, o.total_amount, p.amount, p.payment_method, p.status,
       p.transaction_id, p.notes, p.payment_date, p.updated_at
FROM payments p
JOIN orders o ON o.id = p.order_id
JOIN customers c ON c.id = o.customer_id`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.CustomerName, &p.OrderTotal, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &p.Notes, &p.PaymentDate, &p.UpdatedAt)
	return p, err
}

func (r *repository) GetOrder(ctx context.Context, orderID int64) (OrderRef, error) {
	return r.orderRef(ctx, `SELECT id, status, total_amount FROM orders WHERE id = $1`, orderID)
}

// LockOrder takes the order row lock that serialises payments on one order.
func (r *repository) LockOrder(ctx context.Context, orderID int64) (OrderRef, error) {
	return r.orderRef(ctx, `SELECT id, status, total_amount FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (r *repository) orderRef(ctx context.Context, query string, orderID int64) (OrderRef, error) {
	var ref OrderRef
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, orderID).Scan(&ref.ID, &ref.Status, &ref.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderRef{}, &shared.NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return OrderRef{}, db.Translate(err)
	}
	return ref, nil
}

func (r *repository) Insert(ctx context.Context, p Payment) (Payment, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO payments
(order_id, amount, payment_method, status, transaction_id, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, payment_date, updated_at`,
		p.OrderID, p.Amount, p.Method, p.Status, p.TransactionID, p.Notes,
	).Scan(&p.ID, &p.PaymentDate, &p.UpdatedAt)
	if err != nil {
		return Payment{}, db.Translate(err)
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(db.Conn(ctx, r.pool).QueryRow(ctx, selectPayment+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, &shared.NotFoundError{Entity: "payment", ID: id}
	}
	return p, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "payment", ID: id}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "payment", ID: id}
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	var where catalog.Where
	if filter.OrderID != nil {
		where.Add("p.order_id = $%d", *filter.OrderID)
	}
	if filter.Method != "" {
		where.Add("p.payment_method = $%d", filter.Method)
	}
	if filter.Status != "" {
		where.Add("p.status = $%d", filter.Status)
	}
	if filter.From != nil {
		where.Add("p.payment_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.Add("p.payment_date <= $%d", *filter.To)
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM payments p`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	query := selectPayment + where.SQL() + ` ORDER BY p.payment_date DESC, p.id DESC` +
		` LIMIT ` + where.Next(filter.Limit) + ` OFFSET ` + where.Next(offset)
	rows, err := conn.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		return scanPayment(row)
	})
	return items, total, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectPayment+` WHERE p.order_id = $1 ORDER BY p.payment_date DESC, p.id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		return scanPayment(row)
	})
}

func (r *repository) CompletedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1 AND status = 'completed'`, orderID).Scan(&total)
	return total, err
}

func (r *repository) Statistics(ctx context.Context, from, to time.Time) (Statistics, error) {
	conn := db.Conn(ctx, r.pool)
	stats := Statistics{From: from, To: to}
	err := conn.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM payments
WHERE payment_date >= $1 AND payment_date < $2 AND status = 'completed'`, from, to).Scan(&stats.TotalPayments, &stats.TotalAmount)
	if err != nil {
		return Statistics{}, err
	}
	if stats.ByMethod, err = buckets(ctx, conn, `SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0) FROM payments
WHERE payment_date >= $1 AND payment_date < $2 AND status = 'completed'
GROUP BY payment_method ORDER BY payment_method`, from, to); err != nil {
		return Statistics{}, err
	}
	if stats.ByStatus, err = buckets(ctx, conn, `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM payments
WHERE payment_date >= $1 AND payment_date < $2
GROUP BY status ORDER BY status`, from, to); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

func buckets(ctx context.Context, conn db.DBTX, query string, args ...any) ([]Bucket, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bucket, error) {
		var b Bucket
		err := row.Scan(&b.Key, &b.Count, &b.Amount)
		return b, err
	})
}
