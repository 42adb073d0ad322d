package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sioms/sioms/internal/shared"
)

const (
	codeNumericOutOfRange   = "22003"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
)

// Translate maps PostgreSQL errors onto the domain taxonomy. Other errors pass through.
func Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeNumericOutOfRange:
		field := pgErr.ColumnName
		if field == "" {
			field = "value"
		}
		return &shared.ValidationError{Fields: map[string]string{field: "out of range"}}
	case codeForeignKeyViolation:
		return &shared.ReferentialIntegrityError{Entity: pgErr.TableName, Dependents: pgErr.ConstraintName}
	case codeUniqueViolation:
		return &shared.ConflictError{Reason: "duplicate " + pgErr.ConstraintName}
	case codeCheckViolation:
		if pgErr.ConstraintName == "products_stock_quantity_check" {
			return &shared.InsufficientStockError{}
		}
		return &shared.ValidationError{Fields: map[string]string{pgErr.ConstraintName: pgErr.Message}}
	case codeSerialization, codeDeadlock, codeLockNotAvailable:
		return &shared.ConflictError{Reason: "concurrent modification, retry the request"}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-key violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
