package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/payments"
	"github.com/sioms/sioms/internal/shared"
	"github.com/sioms/sioms/internal/testing/memstore"
	"github.com/sioms/sioms/internal/testing/memtx"
)

type fixture struct {
	inv    *memstore.Inventory
	ord    *memstore.Orders
	pay    *memstore.Payments
	notes  *memstore.Notifications
	tx     *memtx.Transactor
	orders *orders.Service
	svc    *payments.Service
}

var fixedNow = time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		inv:   memstore.NewInventory(inventory.Product{ID: 1, Name: "Widget", SKU: "W-1", StockQuantity: 100}),
		notes: memstore.NewNotifications(),
	}
	f.ord = memstore.NewOrders(f.inv, map[int64]string{1: "Acme Corp"})
	f.pay = memstore.NewPayments(f.ord)
	f.pay.Now = func() time.Time { return fixedNow }
	f.tx = memtx.New(f.inv, f.ord, f.pay, f.notes)
	notifier := notifications.NewService(f.notes)
	f.orders = orders.NewService(orders.Deps{
		Tx:       f.tx,
		Repo:     f.ord,
		Stock:    inventory.NewService(f.tx, f.inv, notifier),
		Notifier: notifier,
	})
	f.svc = payments.NewService(f.tx, f.pay, f.orders, notifier, payments.WithClock(func() time.Time { return fixedNow }))
	return f
}

// placeOrder creates a pending order worth total (one unit at that price).
func (f *fixture) placeOrder(t *testing.T, total string) orders.Order {
	t.Helper()
	unit := decimal.RequireFromString(total)
	order, err := f.orders.PlaceOrder(context.Background(), orders.PlaceOrderRequest{
		CustomerID: 1,
		UserID:     1,
		Lines:      []orders.LineRequest{{ProductID: 1, Quantity: 1, UnitPrice: &unit}},
	})
	require.NoError(t, err)
	return order
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRecordPaymentAdvancesOrderWhenPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "100.00")

	first, err := f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{
		OrderID: order.ID, Amount: amount("40"), Method: payments.MethodCash, Status: payments.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", first.CustomerName)
	header, _ := f.ord.Header(order.ID)
	assert.Equal(t, orders.StatusPending, header.Status)

	_, summary, err := f.svc.ForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatePartial, summary.State)
	assert.Equal(t, "60.00", summary.Balance.StringFixed(2))

	_, err = f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{
		OrderID: order.ID, Amount: amount("60"), Method: payments.MethodCreditCard, Status: payments.StatusCompleted,
	})
	require.NoError(t, err)
	header, _ = f.ord.Header(order.ID)
	assert.Equal(t, orders.StatusProcessing, header.Status)

	items, summary, err := f.svc.ForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, payments.StatePaid, summary.State)
	assert.True(t, summary.Balance.IsZero())

	assert.Equal(t, []string{
		"Payment of $40.00 has been completed for Order #1",
		"Payment of $60.00 has been completed for Order #1",
	}, f.notes.Messages(notifications.TypePayment))
	assert.Contains(t, f.notes.Messages(notifications.TypeOrderStatus), "Order #1 status changed to processing")
}

func TestPendingPaymentDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, "25.00")

	payment, err := f.svc.RecordPayment(context.Background(), payments.RecordPaymentRequest{
		OrderID: order.ID, Amount: amount("25"), Method: payments.MethodPaypal,
	})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPending, payment.Status)
	assert.Regexp(t, `^TXN-[0-9a-f-]{36}$`, payment.TransactionID)

	header, _ := f.ord.Header(order.ID)
	assert.Equal(t, orders.StatusPending, header.Status)
}

func TestUpdateStatusCompletesAndAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "25.00")
	payment, err := f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{
		OrderID: order.ID, Amount: amount("25"), Method: payments.MethodBankTransfer, TransactionID: "BANK-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "BANK-1", payment.TransactionID)

	updated, err := f.svc.UpdateStatus(ctx, payment.ID, payments.UpdateStatusRequest{Status: payments.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusCompleted, updated.Status)

	header, _ := f.ord.Header(order.ID)
	assert.Equal(t, orders.StatusProcessing, header.Status)
	assert.Contains(t, f.notes.Messages(notifications.TypePayment), "Payment status for Order #1 has been updated to completed")

	// Refunding later leaves the order where it is.
	_, err = f.svc.UpdateStatus(ctx, payment.ID, payments.UpdateStatusRequest{Status: payments.StatusRefunded})
	require.NoError(t, err)
	header, _ = f.ord.Header(order.ID)
	assert.Equal(t, orders.StatusProcessing, header.Status)

	_, summary, err := f.svc.ForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StateUnpaid, summary.State)

	_, err = f.svc.UpdateStatus(ctx, payment.ID, payments.UpdateStatusRequest{Status: "lost"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "10.00")

	cases := map[string]payments.RecordPaymentRequest{
		"zero amount":     {OrderID: order.ID, Amount: amount("0"), Method: payments.MethodCash},
		"negative amount": {OrderID: order.ID, Amount: amount("-5"), Method: payments.MethodCash},
		"missing amount":  {OrderID: order.ID, Method: payments.MethodCash},
		"sub-cent amount": {OrderID: order.ID, Amount: amount("1.005"), Method: payments.MethodCash},
		"unknown method":  {OrderID: order.ID, Amount: amount("5"), Method: "barter"},
		"unknown status":  {OrderID: order.ID, Amount: amount("5"), Method: payments.MethodCash, Status: "maybe"},
		"missing order":   {Amount: amount("5"), Method: payments.MethodCash},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, req)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	assert.Zero(t, f.pay.Count())

	_, err := f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{OrderID: 77, Amount: amount("5"), Method: payments.MethodCash})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPaymentRejectsCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "10.00")
	_, err := f.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{OrderID: order.ID, Amount: amount("10"), Method: payments.MethodCash})
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Zero(t, f.pay.Count())
}

func TestDeletePaymentAndOrderCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "10.00")
	p1, err := f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{OrderID: order.ID, Amount: amount("4"), Method: payments.MethodCash})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, payments.RecordPaymentRequest{OrderID: order.ID, Amount: amount("4"), Method: payments.MethodCash})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, p1.ID))
	assert.Equal(t, 1, f.pay.Count())
	require.ErrorIs(t, f.svc.Delete(ctx, p1.ID), shared.ErrNotFound)

	require.NoError(t, f.orders.Delete(ctx, order.ID))
	assert.Zero(t, f.pay.Count())
	assert.Empty(t, f.notes.Messages(notifications.TypePayment))
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.placeOrder(t, "10.00")
	b := f.placeOrder(t, "20.00")
	for _, req := range []payments.RecordPaymentRequest{
		{OrderID: a.ID, Amount: amount("10"), Method: payments.MethodCash, Status: payments.StatusCompleted},
		{OrderID: b.ID, Amount: amount("5"), Method: payments.MethodPaypal},
		{OrderID: b.ID, Amount: amount("15"), Method: payments.MethodPaypal, Status: payments.StatusFailed},
	} {
		_, err := f.svc.RecordPayment(ctx, req)
		require.NoError(t, err)
	}

	items, total, err := f.svc.List(ctx, payments.ListFilter{Method: payments.MethodPaypal})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = f.svc.List(ctx, payments.ListFilter{OrderID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "10.00", items[0].OrderTotal.StringFixed(2))

	_, _, err = f.svc.List(ctx, payments.ListFilter{Method: "barter"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "100.00")
	for _, req := range []payments.RecordPaymentRequest{
		{OrderID: order.ID, Amount: amount("30"), Method: payments.MethodCash, Status: payments.StatusCompleted},
		{OrderID: order.ID, Amount: amount("20"), Method: payments.MethodCash, Status: payments.StatusCompleted},
		{OrderID: order.ID, Amount: amount("50"), Method: payments.MethodDebitCard, Status: payments.StatusFailed},
	} {
		_, err := f.svc.RecordPayment(ctx, req)
		require.NoError(t, err)
	}

	stats, err := f.svc.Statistics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, payments.PeriodMonth, stats.Period)
	assert.Equal(t, 2, stats.TotalPayments)
	assert.Equal(t, "50.00", stats.TotalAmount.StringFixed(2))
	require.Len(t, stats.ByMethod, 1)
	assert.Equal(t, "cash", stats.ByMethod[0].Key)
	require.Len(t, stats.ByStatus, 2)
	assert.Equal(t, "completed", stats.ByStatus[0].Key)
	assert.Equal(t, "failed", stats.ByStatus[1].Key)

	_, err = f.svc.Statistics(ctx, "decade")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPeriodBounds(t *testing.T) {
	now := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC) // a Wednesday
	cases := []struct {
		period   payments.Period
		from, to string
	}{
		{payments.PeriodToday, "2026-03-11", "2026-03-12"},
		{payments.PeriodWeek, "2026-03-09", "2026-03-16"},
		{payments.PeriodMonth, "2026-03-01", "2026-04-01"},
		{payments.PeriodYear, "2026-01-01", "2027-01-01"},
	}
	for _, tc := range cases {
		from, to, ok := tc.period.Bounds(now)
		require.True(t, ok)
		assert.Equal(t, tc.from, from.Format(time.DateOnly), tc.period)
		assert.Equal(t, tc.to, to.Format(time.DateOnly), tc.period)
	}
	_, _, ok := payments.Period("fortnight").Bounds(now)
	assert.False(t, ok)
}

func TestDerive(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, payments.StatePaid, payments.Derive(d("10"), d("10")))
	assert.Equal(t, payments.StatePaid, payments.Derive(d("10"), d("12.5")))
	assert.Equal(t, payments.StatePartial, payments.Derive(d("10"), d("0.01")))
	assert.Equal(t, payments.StateUnpaid, payments.Derive(d("10"), d("0")))
	assert.Equal(t, payments.StateUnpaid, payments.Derive(d("0"), d("0")))
}
