package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/payments"
)

const defaultTopN = 5

var statusRank = map[string]int{
	string(orders.StatusPending):    0,
	string(orders.StatusProcessing): 1,
	string(orders.StatusShipped):    2,
	string(orders.StatusDelivered):  3,
	string(orders.StatusCancelled):  4,
}

func counted(o OrderRow) bool {
	return o.Status != string(orders.StatusCancelled)
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// withPaymentStatus derives each order's payment position from its completed payments.
func withPaymentStatus(rows []OrderRow) []OrderRow {
	for i := range rows {
		rows[i].PaymentStatus = string(payments.Derive(rows[i].TotalAmount, rows[i].PaidAmount))
	}
	return rows
}

// BuildSales aggregates orders and their lines into a sales report.
func BuildSales(filter SalesFilter, rows []OrderRow, lines []LineRow) SalesReport {
	report := SalesReport{Start: filter.Start, End: filter.End}

	keep := make(map[int64]bool, len(rows))
	var ranked []LineRow
	if filter.hasLineFilter() {
		for _, l := range lines {
			if filter.matchLine(l) {
				keep[l.OrderID] = true
				ranked = append(ranked, l)
			}
		}
	} else {
		for _, o := range rows {
			keep[o.ID] = true
		}
		ranked = lines
	}

	statuses := map[string]*StatusBucket{}
	days := map[string]*DayBucket{}
	customers := map[int64]struct{}{}
	countedOrders := map[int64]bool{}
	report.Orders = []OrderRow{}
	for _, o := range withPaymentStatus(rows) {
		if !keep[o.ID] {
			continue
		}
		report.Orders = append(report.Orders, o)

		sb, ok := statuses[o.Status]
		if !ok {
			sb = &StatusBucket{Status: o.Status}
			statuses[o.Status] = sb
		}
		sb.Orders++
		sb.Revenue = sb.Revenue.Add(o.TotalAmount)

		if !counted(o) {
			continue
		}
		countedOrders[o.ID] = true
		report.Totals.OrderCount++
		report.Totals.Revenue = report.Totals.Revenue.Add(o.TotalAmount)
		customers[o.CustomerID] = struct{}{}

		day := o.OrderDate.UTC().Format(time.DateOnly)
		db, ok := days[day]
		if !ok {
			db = &DayBucket{Date: day}
			days[day] = db
		}
		db.Orders++
		db.Revenue = db.Revenue.Add(o.TotalAmount)
	}
	report.Totals.UniqueCustomers = len(customers)
	report.Totals.AverageOrderValue = average(report.Totals.Revenue, report.Totals.OrderCount)

	report.ByStatus = make([]StatusBucket, 0, len(statuses))
	for _, b := range statuses {
		report.ByStatus = append(report.ByStatus, *b)
	}
	sort.Slice(report.ByStatus, func(i, j int) bool {
		return statusRank[report.ByStatus[i].Status] < statusRank[report.ByStatus[j].Status]
	})

	report.ByDay = make([]DayBucket, 0, len(days))
	for _, b := range days {
		report.ByDay = append(report.ByDay, *b)
	}
	sort.Slice(report.ByDay, func(i, j int) bool { return report.ByDay[i].Date < report.ByDay[j].Date })

	var sold []LineRow
	for _, l := range ranked {
		if countedOrders[l.OrderID] {
			sold = append(sold, l)
		}
	}
	report.TopProducts = rankTopProducts(sold, filter.TopN)
	return report
}

// rankTopProducts orders products by quantity sold, then revenue, then id.
func rankTopProducts(lines []LineRow, n int) []ProductSales {
	if n <= 0 {
		n = defaultTopN
	}
	byProduct := map[int64]*ProductSales{}
	for _, l := range lines {
		p, ok := byProduct[l.ProductID]
		if !ok {
			p = &ProductSales{ProductID: l.ProductID, ProductName: l.ProductName}
			byProduct[l.ProductID] = p
		}
		p.Quantity += l.Quantity
		p.Revenue = p.Revenue.Add(l.Subtotal)
	}
	out := make([]ProductSales, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.ProductID < b.ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// rankCustomers orders customers by revenue, then order count, then id.
// Cancelled orders are ignored.
func rankCustomers(rows []OrderRow, n int) []CustomerRank {
	if n <= 0 {
		n = defaultTopN
	}
	byCustomer := map[int64]*CustomerRank{}
	for _, o := range rows {
		if !counted(o) {
			continue
		}
		c, ok := byCustomer[o.CustomerID]
		if !ok {
			c = &CustomerRank{CustomerID: o.CustomerID, CustomerName: o.CustomerName}
			byCustomer[o.CustomerID] = c
		}
		c.OrderCount++
		c.Revenue = c.Revenue.Add(o.TotalAmount)
	}
	out := make([]CustomerRank, 0, len(byCustomer))
	for _, c := range byCustomer {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		return a.CustomerID < b.CustomerID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// BuildInventory values each product at unit price times stock on hand.
func BuildInventory(rows []ProductRow) InventoryReport {
	report := InventoryReport{Products: make([]ProductValuation, 0, len(rows))}
	categories := map[string]*CategoryValuation{}
	totalStock := 0
	for _, p := range rows {
		value := p.UnitPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity))).Round(2)
		low := p.StockQuantity <= p.ReorderLevel
		report.Products = append(report.Products, ProductValuation{ProductRow: p, Value: value, LowStock: low})

		c, ok := categories[p.Category]
		if !ok {
			c = &CategoryValuation{Category: p.Category}
			categories[p.Category] = c
		}
		c.ProductCount++
		c.TotalStock += p.StockQuantity
		c.Value = c.Value.Add(value)

		report.Totals.ProductCount++
		report.Totals.TotalValue = report.Totals.TotalValue.Add(value)
		if low {
			report.Totals.LowStock++
		}
		totalStock += p.StockQuantity
	}
	report.Totals.AverageStock = average(decimal.NewFromInt(int64(totalStock)), report.Totals.ProductCount)

	report.Categories = make([]CategoryValuation, 0, len(categories))
	for _, c := range categories {
		report.Categories = append(report.Categories, *c)
	}
	sort.Slice(report.Categories, func(i, j int) bool { return report.Categories[i].Category < report.Categories[j].Category })
	return report
}

// BuildCustomer summarises one customer's orders. Statistics skip cancelled orders.
func BuildCustomer(info CustomerInfo, rows []OrderRow, lines []LineRow, topN int) CustomerReport {
	report := CustomerReport{Customer: info, Orders: withPaymentStatus(rows)}
	if report.Orders == nil {
		report.Orders = []OrderRow{}
	}
	countedOrders := map[int64]bool{}
	for _, o := range report.Orders {
		if !counted(o) {
			continue
		}
		countedOrders[o.ID] = true
		report.Stats.OrderCount++
		report.Stats.TotalSpent = report.Stats.TotalSpent.Add(o.TotalAmount)
		date := o.OrderDate
		if report.Stats.FirstOrderDate == nil || date.Before(*report.Stats.FirstOrderDate) {
			report.Stats.FirstOrderDate = &date
		}
		if report.Stats.LastOrderDate == nil || date.After(*report.Stats.LastOrderDate) {
			report.Stats.LastOrderDate = &date
		}
	}
	report.Stats.AverageOrderValue = average(report.Stats.TotalSpent, report.Stats.OrderCount)

	var bought []LineRow
	for _, l := range lines {
		if countedOrders[l.OrderID] {
			bought = append(bought, l)
		}
	}
	report.TopProducts = rankTopProducts(bought, topN)
	return report
}
