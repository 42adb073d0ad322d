package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a movement would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrReferentialIntegrity rejects deletes of entities that still have dependents.
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	// ErrConflict signals a lost race or an invalid state transition.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError reports a rejected debit.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ReferentialIntegrityError reports live dependents blocking a delete.
type ReferentialIntegrityError struct {
	Entity     string
	ID         int64
	Dependents string
	Count      int
}

func (e *ReferentialIntegrityError) Error() string {
	if e.Count > 0 {
		return fmt.Sprintf("cannot delete %s %d: %d %s reference it", e.Entity, e.ID, e.Count, e.Dependents)
	}
	return fmt.Sprintf("cannot delete %s %d: %s reference it", e.Entity, e.ID, e.Dependents)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

// ConflictError is surfaced to the caller for retry at its discretion.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + e.Reason
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UserSafeMessage returns a message that can be shown to API clients.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrReferentialIntegrity),
		errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "internal error"
	}
}
