package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/shared"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name   string
		err    *pgconn.PgError
		target error
	}{
		{"foreign key", &pgconn.PgError{Code: codeForeignKeyViolation, TableName: "orders", ConstraintName: "orders_customer_id_fkey"}, shared.ErrReferentialIntegrity},
		{"unique", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "products_sku_key"}, shared.ErrConflict},
		{"stock check", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "products_stock_quantity_check"}, shared.ErrInsufficientStock},
		{"other check", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "payments_amount_check", Message: "violates check"}, shared.ErrValidation},
		{"serialization", &pgconn.PgError{Code: codeSerialization}, shared.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: codeDeadlock}, shared.ErrConflict},
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, shared.ErrConflict},
		{"numeric overflow", &pgconn.PgError{Code: codeNumericOutOfRange, Message: "integer out of range"}, shared.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("repo: %w", tc.err)
			assert.ErrorIs(t, Translate(wrapped), tc.target)
		})
	}
}

func TestTranslatePassesThrough(t *testing.T) {
	plain := errors.New("plain")
	assert.Same(t, plain, Translate(plain))
	assert.Nil(t, Translate(nil))

	other := &pgconn.PgError{Code: "22P02"}
	assert.Same(t, other, Translate(other))
}

func TestTranslateOutOfRangeNamesField(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: codeNumericOutOfRange, Message: "integer out of range"})
	var validationErr *shared.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, map[string]string{"value": "out of range"}, validationErr.Fields)

	err = Translate(&pgconn.PgError{Code: codeNumericOutOfRange, ColumnName: "quantity"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "out of range", validationErr.Fields["quantity"])
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: codeUniqueViolation})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: codeDeadlock}))
	assert.False(t, IsUniqueViolation(errors.New("x")))
}
