package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrEmptyCart           = NewDomainError("EMPTY_CART", "Cart has no items")
	ErrPaymentInitiation   = NewDomainError("PAYMENT_INITIATION_FAILED", "Failed to initiate payment")
	ErrPaymentFailed       = NewDomainError("PAYMENT_FAILED", "Payment was not completed")
	ErrPersistence         = NewDomainError("PERSISTENCE_FAILED", "Failed to persist order")
)

// InsufficientStockError reports a reservation that could not be satisfied.
// Requested and Available let the storefront show exact numbers to the
// customer instead of a generic out-of-stock message.
type InsufficientStockError struct {
	ProductID string
	VariantID string
	Requested int64
	Available int64
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// CouponInvalidError carries the machine-readable reason a coupon was
// rejected so the storefront can produce a specific message.
type CouponInvalidError struct {
	CouponCode string
	Reason     string
}

// Error implements the error interface
func (e *CouponInvalidError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.CouponCode, e.Reason)
}
