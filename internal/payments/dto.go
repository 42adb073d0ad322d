package payments

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sioms/sioms/internal/shared"
)

// maxAmount keeps amounts inside NUMERIC(12,2).
var maxAmount = decimal.New(1, 10)

// RecordPaymentRequest is the payload for POST /payments.
type RecordPaymentRequest struct {
	OrderID       int64            `json:"order_id" validate:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Method        Method           `json:"payment_method" validate:"required,oneof=cash credit_card debit_card bank_transfer paypal other"`
	Status        Status           `json:"status" validate:"omitempty,oneof=pending completed failed refunded"`
	TransactionID string           `json:"transaction_id" validate:"max=100"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

// UpdateStatusRequest is the payload for PUT /payments/{id}/status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending completed failed refunded"`
}

func validateRecord(req RecordPaymentRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return shared.NewValidationError("amount", "must be greater than zero")
	}
	if req.Amount.GreaterThanOrEqual(maxAmount) {
		return shared.NewValidationError("amount", "is too large")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return shared.NewValidationError("amount", "must have at most two decimal places")
	}
	return nil
}

func newTransactionID() string {
	return "TXN-" + uuid.NewString()
}

func toPayment(req RecordPaymentRequest) Payment {
	status := req.Status
	if status == "" {
		status = StatusPending
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		txID = newTransactionID()
	}
	return Payment{
		OrderID:       req.OrderID,
		Amount:        *req.Amount,
		Method:        req.Method,
		Status:        status,
		TransactionID: txID,
		Notes:         strings.TrimSpace(req.Notes),
	}
}
