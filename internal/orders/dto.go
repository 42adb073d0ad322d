package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/shared"
)

// PlaceOrderRequest is the placement payload. UserID and IdempotencyKey come
// from the request context and headers.
type PlaceOrderRequest struct {
	CustomerID     int64         `json:"customer_id" validate:"required,gt=0"`
	UserID         int64         `json:"-"`
	Lines          []LineRequest `json:"items" validate:"required,min=1,dive"`
	Shipping       Shipping      `json:"shipping"`
	Notes          string        `json:"notes" validate:"max=2000"`
	IdempotencyKey string        `json:"-"`
}

// LineRequest is one requested order line.
type LineRequest struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"required,gt=0,lte=2147483647"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"required"`
	Discount  decimal.Decimal  `json:"discount"`
}

var (
	one = decimal.NewFromInt(1)
	// maxMoney keeps prices, subtotals and totals inside NUMERIC(12,2).
	maxMoney = decimal.New(1, 10)
)

// discountPlaces matches the scale of order_details.discount.
const discountPlaces = 4

func validatePlaceOrder(req PlaceOrderRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	fields := map[string]string{}
	for i, line := range req.Lines {
		switch {
		case line.UnitPrice.IsNegative():
			fields[fmt.Sprintf("items[%d].unit_price", i)] = "must not be negative"
		case line.UnitPrice.Round(2).GreaterThanOrEqual(maxMoney):
			fields[fmt.Sprintf("items[%d].unit_price", i)] = "is too large"
		}
		switch {
		case line.Discount.IsNegative() || line.Discount.GreaterThanOrEqual(one):
			fields[fmt.Sprintf("items[%d].discount", i)] = "must be in [0, 1)"
		case !line.Discount.Equal(line.Discount.Round(discountPlaces)):
			fields[fmt.Sprintf("items[%d].discount", i)] = "must have at most 4 decimal places"
		}
	}
	if len(fields) == 0 {
		if _, total := buildLines(req.Lines); total.GreaterThanOrEqual(maxMoney) {
			fields["items"] = "order total is too large"
		}
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		if _, err := uuid.Parse(key); err != nil {
			fields["idempotency_key"] = "must be a UUID"
		}
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// LineSubtotal is quantity x unit price x (1 - discount), rounded to cents.
func LineSubtotal(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Mul(one.Sub(discount)).Round(2)
}

// buildLines prices each requested line and sums the order total.
func buildLines(reqs []LineRequest) ([]Line, decimal.Decimal) {
	lines := make([]Line, len(reqs))
	total := decimal.Zero
	for i, req := range reqs {
		price := req.UnitPrice.Round(2)
		subtotal := LineSubtotal(req.Quantity, price, req.Discount)
		lines[i] = Line{
			LineNo:    i + 1,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: price,
			Discount:  req.Discount,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}
	return lines, total
}
