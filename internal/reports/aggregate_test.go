package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC) }

func id(v int64) *int64 { return &v }

func sampleOrders() []OrderRow {
	return []OrderRow{
		{ID: 1, CustomerID: 1, CustomerName: "Acme", Status: "delivered", TotalAmount: dec("100.00"), OrderDate: day(1), PaidAmount: dec("100.00")},
		{ID: 2, CustomerID: 2, CustomerName: "Globex", Status: "pending", TotalAmount: dec("50.00"), OrderDate: day(1), PaidAmount: dec("20.00")},
		{ID: 3, CustomerID: 1, CustomerName: "Acme", Status: "cancelled", TotalAmount: dec("70.00"), OrderDate: day(2)},
		{ID: 4, CustomerID: 3, CustomerName: "Initech", Status: "shipped", TotalAmount: dec("100.00"), OrderDate: day(3)},
	}
}

func sampleLines() []LineRow {
	return []LineRow{
		{OrderID: 1, ProductID: 1, ProductName: "Gizmo", Category: "gadgets", SupplierID: id(1), Quantity: 2, Subtotal: dec("60.00")},
		{OrderID: 1, ProductID: 2, ProductName: "Wrench", Category: "tools", SupplierID: id(2), Quantity: 1, Subtotal: dec("40.00")},
		{OrderID: 2, ProductID: 2, ProductName: "Wrench", Category: "tools", SupplierID: id(2), Quantity: 3, Subtotal: dec("50.00")},
		{OrderID: 3, ProductID: 1, ProductName: "Gizmo", Category: "gadgets", SupplierID: id(1), Quantity: 10, Subtotal: dec("70.00")},
		{OrderID: 4, ProductID: 3, ProductName: "Doohickey", Category: "gadgets", Quantity: 2, Subtotal: dec("100.00")},
	}
}

func TestBuildSalesExcludesCancelledFromTotals(t *testing.T) {
	report := BuildSales(SalesFilter{Start: day(1), End: day(31), TopN: 5}, sampleOrders(), sampleLines())

	assert.Equal(t, "250.00", report.Totals.Revenue.StringFixed(2))
	assert.Equal(t, 3, report.Totals.OrderCount)
	assert.Equal(t, "83.33", report.Totals.AverageOrderValue.StringFixed(2))
	assert.Equal(t, 3, report.Totals.UniqueCustomers)
	assert.Len(t, report.Orders, 4)

	var statuses []string
	for _, b := range report.ByStatus {
		statuses = append(statuses, b.Status)
	}
	assert.Equal(t, []string{"pending", "shipped", "delivered", "cancelled"}, statuses)
	assert.Equal(t, "70.00", report.ByStatus[3].Revenue.StringFixed(2))

	require.Len(t, report.ByDay, 2)
	assert.Equal(t, "2026-03-01", report.ByDay[0].Date)
	assert.Equal(t, 2, report.ByDay[0].Orders)
	assert.Equal(t, "150.00", report.ByDay[0].Revenue.StringFixed(2))
	assert.Equal(t, "2026-03-03", report.ByDay[1].Date)
}

func TestBuildSalesTopProductsTieBreak(t *testing.T) {
	report := BuildSales(SalesFilter{Start: day(1), End: day(31), TopN: 5}, sampleOrders(), sampleLines())

	require.Len(t, report.TopProducts, 3)
	// Gizmo's 10 units sit on a cancelled order.
	assert.Equal(t, int64(2), report.TopProducts[0].ProductID)
	assert.Equal(t, 4, report.TopProducts[0].Quantity)
	assert.Equal(t, int64(3), report.TopProducts[1].ProductID)
	assert.Equal(t, int64(1), report.TopProducts[2].ProductID)

	limited := BuildSales(SalesFilter{Start: day(1), End: day(31), TopN: 1}, sampleOrders(), sampleLines())
	assert.Len(t, limited.TopProducts, 1)
}

func TestBuildSalesLineFilters(t *testing.T) {
	cases := []struct {
		name     string
		filter   SalesFilter
		orders   []int64
		revenue  string
		products []int64
	}{
		{"category", SalesFilter{Category: "tools"}, []int64{1, 2}, "150.00", []int64{2}},
		{"product", SalesFilter{ProductID: id(3)}, []int64{4}, "100.00", []int64{3}},
		{"supplier", SalesFilter{SupplierID: id(1)}, []int64{1, 3}, "100.00", []int64{1}},
		{"no match", SalesFilter{Category: "garden"}, nil, "0.00", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := BuildSales(tc.filter, sampleOrders(), sampleLines())
			var ids []int64
			for _, o := range report.Orders {
				ids = append(ids, o.ID)
			}
			assert.ElementsMatch(t, tc.orders, ids)
			assert.Equal(t, tc.revenue, report.Totals.Revenue.StringFixed(2))
			var products []int64
			for _, p := range report.TopProducts {
				products = append(products, p.ProductID)
			}
			assert.Equal(t, tc.products, products)
		})
	}
}

func TestBuildSalesPaymentStatus(t *testing.T) {
	report := BuildSales(SalesFilter{}, sampleOrders(), nil)
	got := map[int64]string{}
	for _, o := range report.Orders {
		got[o.ID] = o.PaymentStatus
	}
	assert.Equal(t, map[int64]string{1: "paid", 2: "partial", 3: "unpaid", 4: "unpaid"}, got)
}

func TestRankCustomers(t *testing.T) {
	ranks := rankCustomers(sampleOrders(), 5)

	require.Len(t, ranks, 3)
	assert.Equal(t, []int64{1, 3, 2}, []int64{ranks[0].CustomerID, ranks[1].CustomerID, ranks[2].CustomerID})
	assert.Equal(t, 1, ranks[0].OrderCount)
	assert.Equal(t, "100.00", ranks[0].Revenue.StringFixed(2))

	assert.Len(t, rankCustomers(sampleOrders(), 2), 2)
}

func TestBuildInventory(t *testing.T) {
	report := BuildInventory([]ProductRow{
		{ID: 1, Name: "A", Category: "a", UnitPrice: dec("2.50"), StockQuantity: 4, ReorderLevel: 5},
		{ID: 2, Name: "B", Category: "b", UnitPrice: dec("1.333"), StockQuantity: 3, ReorderLevel: 1},
		{ID: 3, Name: "C", Category: "a", UnitPrice: dec("10.00"), StockQuantity: 0, ReorderLevel: 0},
	})

	assert.Equal(t, 3, report.Totals.ProductCount)
	assert.Equal(t, 2, report.Totals.LowStock)
	assert.Equal(t, "14.00", report.Totals.TotalValue.StringFixed(2))
	assert.Equal(t, "2.33", report.Totals.AverageStock.StringFixed(2))

	assert.Equal(t, "10.00", report.Products[0].Value.StringFixed(2))
	assert.True(t, report.Products[0].LowStock)
	assert.Equal(t, "4.00", report.Products[1].Value.StringFixed(2))
	assert.False(t, report.Products[1].LowStock)

	require.Len(t, report.Categories, 2)
	assert.Equal(t, "a", report.Categories[0].Category)
	assert.Equal(t, 2, report.Categories[0].ProductCount)
	assert.Equal(t, 4, report.Categories[0].TotalStock)
	assert.Equal(t, "10.00", report.Categories[0].Value.StringFixed(2))
}

func TestBuildInventoryEmpty(t *testing.T) {
	report := BuildInventory(nil)
	assert.Equal(t, 0, report.Totals.ProductCount)
	assert.True(t, report.Totals.AverageStock.IsZero())
	assert.NotNil(t, report.Products)
	assert.NotNil(t, report.Categories)
}

func TestBuildCustomer(t *testing.T) {
	var rows []OrderRow
	for _, o := range sampleOrders() {
		if o.CustomerID == 1 {
			rows = append(rows, o)
		}
	}
	report := BuildCustomer(CustomerInfo{ID: 1, Name: "Acme"}, rows, sampleLines(), 5)

	assert.Len(t, report.Orders, 2)
	assert.Equal(t, 1, report.Stats.OrderCount)
	assert.Equal(t, "100.00", report.Stats.TotalSpent.StringFixed(2))
	assert.Equal(t, "100.00", report.Stats.AverageOrderValue.StringFixed(2))
	require.NotNil(t, report.Stats.FirstOrderDate)
	assert.Equal(t, day(1), *report.Stats.FirstOrderDate)
	assert.Equal(t, day(1), *report.Stats.LastOrderDate)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, int64(1), report.TopProducts[0].ProductID)
	assert.Equal(t, 2, report.TopProducts[0].Quantity)
}

func TestBuildCustomerWithoutOrders(t *testing.T) {
	report := BuildCustomer(CustomerInfo{ID: 9, Name: "Nobody"}, nil, nil, 5)
	assert.NotNil(t, report.Orders)
	assert.Zero(t, report.Stats.OrderCount)
	assert.Nil(t, report.Stats.FirstOrderDate)
	assert.Empty(t, report.TopProducts)
}
