package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/platform/db"
)

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const summarySQL = `SELECT
    (SELECT COUNT(*) FROM products WHERE status = 'active'),
    (SELECT COUNT(*) FROM products WHERE status = 'active' AND stock_quantity <= reorder_level),
    (SELECT COUNT(*) FROM orders WHERE status = 'pending'),
    (SELECT COUNT(*) FROM orders WHERE order_date >= $2 AND order_date < $3 AND status <> 'cancelled'),
    (SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE order_date >= $2 AND order_date < $3 AND status <> 'cancelled'),
    (SELECT COUNT(*) FROM notifications WHERE is_read = FALSE AND (user_id = $1 OR user_id IS NULL))`

func (r *repository) Summary(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (Summary, error) {
	var s Summary
	err := db.Conn(ctx, r.pool).QueryRow(ctx, summarySQL, userID, dayStart, dayEnd).Scan(
		&s.TotalProducts, &s.LowStockProducts, &s.PendingOrders, &s.TodayOrders, &s.TodayRevenue, &s.UnreadNotifications,
	)
	return s, err
}
