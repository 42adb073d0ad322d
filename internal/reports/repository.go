package reports

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository reads the rows the aggregates are built from and stores snapshots.
type Repository interface {
	OrderRows(ctx context.Context, window Range, customerID *int64) ([]OrderRow, error)
	LineRows(ctx context.Context, window Range, customerID *int64) ([]LineRow, error)
	Products(ctx context.Context, filter InventoryFilter) ([]ProductRow, error)
	Customer(ctx context.Context, id int64) (CustomerInfo, error)
	Insert(ctx context.Context, r Report) (Report, error)
	List(ctx context.Context, filter ListFilter) ([]Report, error)
	Get(ctx context.Context, id int64) (Report, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func orderWhere(window Range, customerID *int64) *catalog.Where {
	var where catalog.Where
	if window.Start != nil {
		where.Add("o.order_date >= $%d", *window.Start)
	}
	if window.End != nil {
		where.Add("o.order_date <= $%d", *window.End)
	}
	if customerID != nil {
		where.Add("o.customer_id = $%d", *customerID)
	}
	return &where
}

func (r *repository) OrderRows(ctx context.Context, window Range, customerID *int64) ([]OrderRow, error) {
	where := orderWhere(window, customerID)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT o.id, o.customer_id, c.name, o.status, o.total_amount, o.order_date,
       (SELECT COUNT(*) FROM order_details d WHERE d.order_id = o.id),
       COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.order_id = o.id AND p.status = 'completed'), 0)
FROM orders o
JOIN customers c ON c.id = o.customer_id`+where.SQL()+`
ORDER BY o.order_date DESC, o.id DESC`, where.Args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderRow, error) {
		var o OrderRow
		err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.Status, &o.TotalAmount, &o.OrderDate, &o.ItemCount, &o.PaidAmount)
		return o, err
	})
}

func (r *repository) LineRows(ctx context.Context, window Range, customerID *int64) ([]LineRow, error) {
	where := orderWhere(window, customerID)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT d.order_id, d.product_id, p.name, p.category, p.supplier_id, d.quantity, d.subtotal
FROM order_details d
JOIN orders o ON o.id = d.order_id
JOIN products p ON p.id = d.product_id`+where.SQL()+`
ORDER BY d.order_id, d.line_no`, where.Args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineRow, error) {
		var l LineRow
		err := row.Scan(&l.OrderID, &l.ProductID, &l.ProductName, &l.Category, &l.SupplierID, &l.Quantity, &l.Subtotal)
		return l, err
	})
}

func (r *repository) Products(ctx context.Context, filter InventoryFilter) ([]ProductRow, error) {
	var where catalog.Where
	if filter.Category != "" {
		where.Add("p.category = $%d", filter.Category)
	}
	if filter.SupplierID != nil {
		where.Add("p.supplier_id = $%d", *filter.SupplierID)
	}
	if filter.LowStockOnly {
		where.AddRaw("p.stock_quantity <= p.reorder_level")
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT p.id, p.name, p.sku, p.category, COALESCE(s.name, ''), p.unit_price,
       p.stock_quantity, p.reorder_level, p.status,
       COALESCE((SELECT -SUM(l.change_quantity) FROM stock_logs l WHERE l.product_id = p.id AND l.change_type = 'sale'), 0),
       (SELECT COUNT(DISTINCT d.order_id) FROM order_details d WHERE d.product_id = p.id)
FROM products p
LEFT JOIN suppliers s ON s.id = p.supplier_id`+where.SQL()+`
ORDER BY p.category, p.name, p.id`, where.Args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductRow, error) {
		var p ProductRow
		err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.SupplierName, &p.UnitPrice,
			&p.StockQuantity, &p.ReorderLevel, &p.Status, &p.UnitsSold, &p.OrderCount)
		return p, err
	})
}

func (r *repository) Customer(ctx context.Context, id int64) (CustomerInfo, error) {
	var c CustomerInfo
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, name, email, phone, city, status FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.City, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomerInfo{}, &shared.NotFoundError{Entity: "customer", ID: id}
	}
	return c, err
}

func (r *repository) Insert(ctx context.Context, rep Report) (Report, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO reports (user_id, name, report_type, parameters, result_data)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		rep.UserID, rep.Name, rep.Type, []byte(rep.Parameters), []byte(rep.Result),
	).Scan(&rep.ID, &rep.CreatedAt)
	if err != nil {
		return Report{}, db.Translate(err)
	}
	return rep, nil
}

const selectReport = `SELECT r.id, r.user_id, COALESCE(u.username, ''), r.name, r.report_type, r.parameters, r.created_at`

func scanReport(row pgx.Row, withResult bool) (Report, error) {
	var (
		rep    Report
		params []byte
		result []byte
	)
	dest := []any{&rep.ID, &rep.UserID, &rep.GeneratedBy, &rep.Name, &rep.Type, &params, &rep.CreatedAt}
	if withResult {
		dest = append(dest, &result)
	}
	if err := row.Scan(dest...); err != nil {
		return Report{}, err
	}
	rep.Parameters = params
	if withResult {
		rep.Result = result
	}
	return rep, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Report, error) {
	var where catalog.Where
	if filter.UserID != nil {
		where.Add("r.user_id = $%d", *filter.UserID)
	}
	if filter.Type != "" {
		where.Add("r.report_type = $%d", filter.Type)
	}
	query := selectReport + ` FROM reports r LEFT JOIN users u ON u.id = r.user_id` + where.SQL() +
		` ORDER BY r.created_at DESC, r.id DESC LIMIT ` + where.Next(filter.Limit)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, where.Args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Report, error) {
		return scanReport(row, false)
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Report, error) {
	rep, err := scanReport(db.Conn(ctx, r.pool).QueryRow(ctx,
		selectReport+`, r.result_data FROM reports r LEFT JOIN users u ON u.id = r.user_id WHERE r.id = $1`, id), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, &shared.NotFoundError{Entity: "report", ID: id}
	}
	return rep, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "report", ID: id}
	}
	return nil
}
