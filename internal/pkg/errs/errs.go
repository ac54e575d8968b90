// Package errs defines the error taxonomy shared by the order processor,
// repositories, and the HTTP boundary. Each type carries the fields a caller
// needs to act on the failure.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed request, e.g. an empty order or a
// non-positive quantity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity by kind ("user", "inventory_item",
// "order") and identifier.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InsufficientStockError reports a line whose requested quantity exceeds the
// item's available stock.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// PersistenceError wraps a storage failure surfaced during commit.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// DeliveryError reports a failed send to a single observer. It is consumed
// inside the broadcast hub only and never escalates past it.
type DeliveryError struct {
	ObserverID string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to observer %s failed: %v", e.ObserverID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
