package products

import (
	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/shared"
)

var maxUnitPrice = decimal.New(1, 10) // NUMERIC(12,2)

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError("unit_price", "must not be negative")
	}
	if price.GreaterThanOrEqual(maxUnitPrice) {
		return shared.NewValidationError("unit_price", "is too large")
	}
	return nil
}
