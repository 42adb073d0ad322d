package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/orders"
)

// Method is how the customer paid.
type Method string

const (
	MethodCash         Method = "cash"
	MethodCreditCard   Method = "credit_card"
	MethodDebitCard    Method = "debit_card"
	MethodBankTransfer Method = "bank_transfer"
	MethodPaypal       Method = "paypal"
	MethodOther        Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodPaypal, MethodOther:
		return true
	}
	return false
}

// Status is the payment's own lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Payment is one payment applied to an order.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	Amount        decimal.Decimal `json:"amount"`
	Method        Method          `json:"payment_method"`
	Status        Status          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes"`
	PaymentDate   time.Time       `json:"payment_date"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// State is the payment position of an order, derived from its completed
// payments. It is never stored.
type State string

const (
	StatePaid    State = "paid"
	StatePartial State = "partial"
	StateUnpaid  State = "unpaid"
)

// Derive computes the payment state of an order.
func Derive(orderTotal, completed decimal.Decimal) State {
	switch {
	case completed.IsPositive() && completed.GreaterThanOrEqual(orderTotal):
		return StatePaid
	case completed.IsPositive():
		return StatePartial
	default:
		return StateUnpaid
	}
}

// Summary is the payment position of one order.
type Summary struct {
	OrderID    int64           `json:"order_id"`
	OrderTotal decimal.Decimal `json:"order_total"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	Balance    decimal.Decimal `json:"balance"`
	State      State           `json:"payment_status"`
}

func summarize(orderID int64, total, paid decimal.Decimal) Summary {
	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return Summary{OrderID: orderID, OrderTotal: total, TotalPaid: paid, Balance: balance, State: Derive(total, paid)}
}

// OrderRef is the locked order header a payment is applied to.
type OrderRef struct {
	ID          int64
	Status      orders.Status
	TotalAmount decimal.Decimal
}

// ListFilter narrows payment listings.
type ListFilter struct {
	OrderID *int64
	Method  Method
	Status  Status
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

// Period selects the statistics window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Bounds returns the [from, to) window of p containing now. Weeks start on Monday.
func (p Period) Bounds(now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodToday:
		return day, day.AddDate(0, 0, 1), true
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), true
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), true
	case PeriodYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// Bucket is a count and amount for one method or status.
type Bucket struct {
	Key    string          `json:"key"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"total_amount"`
}

// Statistics summarises payments in a period. Totals and ByMethod count
// completed payments only; ByStatus covers all of them.
type Statistics struct {
	Period        Period          `json:"period"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalPayments int             `json:"total_payments"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ByMethod      []Bucket        `json:"payments_by_method"`
	ByStatus      []Bucket        `json:"payments_by_status"`
}
