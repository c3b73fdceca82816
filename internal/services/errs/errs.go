// Package errs defines the typed errors surfaced by the core services.
// The gateway maps each kind to an HTTP status and a stable error code;
// raw database errors never cross that boundary.
package errs

import "fmt"

// ValidationError rejects malformed or semantically invalid input. Never
// retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing Product, Inventory, Batch or Sale.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func NotFound(entity, keyFormat string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf(keyFormat, args...)}
}

// InsufficientStockError names the product whose available count cannot
// cover the requested quantity. The caller may re-check and retry with a
// reduced quantity; the core never retries itself.
type InsufficientStockError struct {
	ProductID int32
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// TransientError wraps database contention, lock timeouts and connection
// failures. The whole operation is safe to retry; settle retries must carry
// the same receipt number so the duplicate is detected.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Transient(err error) *TransientError {
	return &TransientError{Err: err}
}

// IntegrityError marks a violated bookkeeping invariant, e.g. a ledger sum
// that no longer explains the on-hand count. Not recoverable locally.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "integrity: " + e.Detail
}

func Integrity(format string, args ...interface{}) *IntegrityError {
	return &IntegrityError{Detail: fmt.Sprintf(format, args...)}
}
