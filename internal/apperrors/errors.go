// Package apperrors defines the error taxonomy shared by the storefront
// packages. Handlers translate these into HTTP responses in one place.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an order id does not match a stored order.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when a shared secret is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when an order changed between read and write.
	ErrConflict = errors.New("order was modified concurrently")

	// ErrMalformedPayload is returned when a webhook body lacks the expected envelope.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownProduct    = errors.New("unknown product")
)

// ValidationError describes a user-correctable problem with one request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GatewayErrorKind classifies payment provider failures.
type GatewayErrorKind string

const (
	GatewayUnavailable GatewayErrorKind = "gateway_unavailable"
	GatewayRejected    GatewayErrorKind = "gateway_rejected"
)

// GatewayError is returned when the payment provider call fails. It is never
// retried by the caller.
type GatewayError struct {
	Kind       GatewayErrorKind
	StatusCode int
	Message    string
	Detail     []byte
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// StorageError wraps a persistence failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err in a StorageError unless it is nil or already one of the
// domain sentinels.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// UnknownProduct reports a cart line that references a product id missing
// from the catalog.
func UnknownProduct(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
}

// InvalidTransition reports a rejected status change.
func InvalidTransition(from, to string) error {
	return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, from, to)
}
