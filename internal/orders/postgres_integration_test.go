//go:build integration

package orders_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sioms/sioms/internal/catalog/customers"
	"github.com/sioms/sioms/internal/catalog/products"
	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

type stack struct {
	pool      *pgxpool.Pool
	ledger    *inventory.Service
	products  *products.Service
	customers *customers.Service
	orders    *orders.Service
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sioms",
				"POSTGRES_PASSWORD": "sioms",
				"POSTGRES_DB":       "sioms",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://sioms:sioms@%s:%s/sioms?sslmode=disable", host, port.Port())
	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

func newStack(t *testing.T) *stack {
	t.Helper()
	pool := startPostgres(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := db.NewTransactor(pool)
	notifier := notifications.NewService(notifications.NewRepository(pool))
	ledger := inventory.NewService(tx, inventory.NewRepository(pool), notifier, inventory.WithLogger(logger))
	return &stack{
		pool:      pool,
		ledger:    ledger,
		products:  products.NewService(tx, products.NewRepository(pool), ledger, nil, logger),
		customers: customers.NewService(customers.NewRepository(pool)),
		orders: orders.NewService(orders.Deps{
			Tx:          tx,
			Repo:        orders.NewRepository(pool),
			Stock:       ledger,
			Notifier:    notifier,
			Idempotency: shared.NewIdempotencyStore(db.ConnFunc(pool)),
			Audit:       shared.NewAuditLogger(db.ConnFunc(pool)),
			Logger:      logger,
		}),
	}
}

func (s *stack) product(t *testing.T, ctx context.Context, sku string, stock, reorder int) products.Product {
	t.Helper()
	p, err := s.products.Create(ctx, products.CreateRequest{
		Name:          "Item " + sku,
		SKU:           sku,
		UnitPrice:     decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		ReorderLevel:  reorder,
	})
	require.NoError(t, err)
	return p
}

func (s *stack) count(t *testing.T, ctx context.Context, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.pool.QueryRow(ctx, query, args...).Scan(&n))
	return n
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	s := newStack(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 1, Role: "admin"})
	customer, err := s.customers.Create(ctx, customers.CustomerRequest{Name: "Race Buyer"})
	require.NoError(t, err)
	product := s.product(t, ctx, "RACE-1", 5, 0)
	price := decimal.RequireFromString("10.00")

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
				CustomerID:     customer.ID,
				Lines:          []orders.LineRequest{{ProductID: product.ID, Quantity: 1, UnitPrice: &price}},
				IdempotencyKey: uuid.NewString(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, 0, s.count(t, ctx, `SELECT stock_quantity FROM products WHERE id = $1`, product.ID))
	assert.Equal(t, 5, s.count(t, ctx, `SELECT COUNT(*) FROM orders`))

	check, err := s.ledger.VerifyLedger(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent, check.Detail)
	assert.Equal(t, 6, check.Movements)
}

func TestFailedOrderLeavesNoTrace(t *testing.T) {
	s := newStack(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 1, Role: "admin"})
	customer, err := s.customers.Create(ctx, customers.CustomerRequest{Name: "Atomic Buyer"})
	require.NoError(t, err)
	plenty := s.product(t, ctx, "ATOM-1", 50, 0)
	scarce := s.product(t, ctx, "ATOM-2", 2, 0)
	price := decimal.RequireFromString("10.00")

	atomicKey := uuid.NewString()
	ordersBefore := s.count(t, ctx, `SELECT COUNT(*) FROM orders`)
	movementsBefore := s.count(t, ctx, `SELECT COUNT(*) FROM stock_logs`)
	notificationsBefore := s.count(t, ctx, `SELECT COUNT(*) FROM notifications`)

	_, err = s.orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
		CustomerID: customer.ID,
		Lines: []orders.LineRequest{
			{ProductID: plenty.ID, Quantity: 3, UnitPrice: &price},
			{ProductID: scarce.ID, Quantity: 5, UnitPrice: &price},
		},
		IdempotencyKey: atomicKey,
	})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ProductID)

	assert.Equal(t, ordersBefore, s.count(t, ctx, `SELECT COUNT(*) FROM orders`))
	assert.Equal(t, 0, s.count(t, ctx, `SELECT COUNT(*) FROM order_details`))
	assert.Equal(t, movementsBefore, s.count(t, ctx, `SELECT COUNT(*) FROM stock_logs`))
	assert.Equal(t, notificationsBefore, s.count(t, ctx, `SELECT COUNT(*) FROM notifications`))
	assert.Equal(t, 0, s.count(t, ctx, `SELECT COUNT(*) FROM idempotency_keys WHERE key = $1`, atomicKey))
	assert.Equal(t, 50, s.count(t, ctx, `SELECT stock_quantity FROM products WHERE id = $1`, plenty.ID))
	assert.Equal(t, 2, s.count(t, ctx, `SELECT stock_quantity FROM products WHERE id = $1`, scarce.ID))
}

func TestOrderScenarioWithLowStockAlert(t *testing.T) {
	s := newStack(t)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 1, Role: "admin"})
	customer, err := s.customers.Create(ctx, customers.CustomerRequest{Name: "Scenario Buyer"})
	require.NoError(t, err)
	product := s.product(t, ctx, "SCN-1", 5, 5)
	price := decimal.RequireFromString("10.00")
	lowStockQuery := `SELECT COUNT(*) FROM notifications WHERE type = 'low_stock' AND reference_id = $1`
	// initial stock of 5 already sits at the reorder level
	alertsBefore := s.count(t, ctx, lowStockQuery, product.ID)
	require.Equal(t, 1, alertsBefore)

	order, err := s.orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
		CustomerID: customer.ID,
		Lines:      []orders.LineRequest{{ProductID: product.ID, Quantity: 3, UnitPrice: &price}},
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, s.count(t, ctx, `SELECT stock_quantity FROM products WHERE id = $1`, product.ID))
	assert.Equal(t, 1, s.count(t, ctx, `SELECT COUNT(*) FROM stock_logs WHERE product_id = $1 AND change_type = 'sale' AND change_quantity = -3`, product.ID))
	assert.Equal(t, 1, s.count(t, ctx, `SELECT COUNT(*) FROM notifications WHERE type = 'order_status' AND reference_id = $1`, order.ID))
	assert.Equal(t, alertsBefore+1, s.count(t, ctx, lowStockQuery, product.ID))
}
