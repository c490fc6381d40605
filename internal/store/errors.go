package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrConflict           = errors.New("concurrent modification")
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrCheckViolation     = errors.New("check constraint violated")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field string, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NotFound(entity string, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError names the inventory category so callers can tell the
// user exactly what ran out.
type InsufficientStockError struct {
	ItemID    string
	Category  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("insufficient %s: no stock available in branch, requested %d", e.Category, e.Requested)
	}
	return fmt.Sprintf("insufficient %s: available %d, requested %d", e.Category, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: concurrent modification: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() []error {
	return []error{ErrConflict, e.Err}
}

// AbortError wraps any failure raised inside a unit of work. It matches
// ErrTransactionAborted and still exposes the cause to errors.Is / errors.As.
type AbortError struct {
	Op  string
	Err error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s aborted: %v", e.Op, e.Err)
}

func (e *AbortError) Unwrap() []error {
	return []error{ErrTransactionAborted, e.Err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err was caused by the request rather than by
// the store or the environment.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrForbidden)
}

// IsRetryable reports whether the caller may retry the same request once.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, context.DeadlineExceeded)
}
