package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Initiation errors
	ErrInvalidOrderID     = errors.New("payment: invalid order ID")
	ErrInvalidOrderNumber = errors.New("payment: invalid order number")
	ErrInvalidAmount      = errors.New("payment: invalid payment amount")
	ErrInvalidProvider    = errors.New("payment: invalid gateway provider")
	ErrInvalidCallbackURL = errors.New("payment: invalid callback URL")

	// Verification errors
	ErrInvalidQueryParams = errors.New("payment: need transaction ID or order number to verify")
	ErrTransactionUnknown = errors.New("payment: transaction not found in gateway")
	ErrInvalidSignature   = errors.New("payment: invalid callback signature")

	// Gateway errors
	ErrGatewayNotConfigured = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable   = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed = errors.New("payment: gateway request failed")
)

// Provider identifies an external payment gateway
type Provider string

const (
	// ProviderSandbox is the built-in test gateway
	ProviderSandbox Provider = "SANDBOX"
	// ProviderStripe represents a card processor
	ProviderStripe Provider = "STRIPE"
	// ProviderPaypal represents a wallet processor
	ProviderPaypal Provider = "PAYPAL"
)

// IsValid returns true if the provider is known
func (p Provider) IsValid() bool {
	switch p {
	case ProviderSandbox, ProviderStripe, ProviderPaypal:
		return true
	default:
		return false
	}
}

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// GatewayStatus is the payment status as reported by the gateway
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "PENDING"
	GatewayStatusPaid      GatewayStatus = "PAID"
	GatewayStatusFailed    GatewayStatus = "FAILED"
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
	GatewayStatusRefunded  GatewayStatus = "REFUNDED"
	GatewayStatusExpired   GatewayStatus = "EXPIRED"
)

// IsValid returns true if the status is a known value
func (s GatewayStatus) IsValid() bool {
	switch s {
	case GatewayStatusPending, GatewayStatusPaid, GatewayStatusFailed,
		GatewayStatusCancelled, GatewayStatusRefunded, GatewayStatusExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of GatewayStatus
func (s GatewayStatus) String() string {
	return string(s)
}

// IsFinal returns true if the gateway will not change the status again
func (s GatewayStatus) IsFinal() bool {
	switch s {
	case GatewayStatusPaid, GatewayStatusFailed, GatewayStatusCancelled,
		GatewayStatusRefunded, GatewayStatusExpired:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the payment settled
func (s GatewayStatus) IsSuccess() bool {
	return s == GatewayStatusPaid
}

// ---------------------------------------------------------------------------
// Request/Response DTOs
// ---------------------------------------------------------------------------

// InitiateRequest asks the gateway to open a payment session for an order
type InitiateRequest struct {
	// OrderID is our internal order ID
	OrderID uuid.UUID
	// OrderNumber is our human-readable order number (shown to payer)
	OrderNumber string
	// Amount is the amount to charge
	Amount decimal.Decimal
	// Currency is the ISO currency code (default USD)
	Currency string
	// Provider selects the gateway
	Provider Provider
	// CallbackURL receives the asynchronous payment notification
	CallbackURL string
	// ReturnURL is where the payer lands after completing payment
	ReturnURL string
	// ExpireAt is when the payment session should lapse
	ExpireAt time.Time
	// Metadata is extra key-value data echoed back in callbacks
	Metadata map[string]string
}

// Validate validates the initiate request
func (r *InitiateRequest) Validate() error {
	if r.OrderID == uuid.Nil {
		return ErrInvalidOrderID
	}
	if r.OrderNumber == "" {
		return ErrInvalidOrderNumber
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !r.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if r.CallbackURL == "" {
		return ErrInvalidCallbackURL
	}
	return nil
}

// Handle is the gateway's answer to an initiated payment: where to send
// the payer and how to correlate the eventual result.
type Handle struct {
	// TransactionID is the gateway's identifier for this payment
	TransactionID string
	// Provider identifies which gateway opened the session
	Provider Provider
	// Status is the initial gateway status
	Status GatewayStatus
	// PaymentURL is where the payer completes the payment
	PaymentURL string
	// ExpireAt is when the session lapses
	ExpireAt time.Time
}

// VerifyRequest queries the gateway for the authoritative payment result
type VerifyRequest struct {
	// TransactionID is the gateway transaction to check
	TransactionID string
	// OrderNumber is an alternative lookup key
	OrderNumber string
	// Provider selects the gateway to query
	Provider Provider
}

// Validate validates the verify request
func (r *VerifyRequest) Validate() error {
	if r.TransactionID == "" && r.OrderNumber == "" {
		return ErrInvalidQueryParams
	}
	if !r.Provider.IsValid() {
		return ErrInvalidProvider
	}
	return nil
}

// VerifyResult is the gateway's authoritative view of a payment
type VerifyResult struct {
	TransactionID string
	Provider      Provider
	OrderNumber   string
	Status        GatewayStatus
	Amount        decimal.Decimal
	Currency      string
	// FailureReason is set when Status is FAILED
	FailureReason string
	PaidAt        *time.Time
}

// Callback is a payment notification pushed by the gateway. Callbacks
// are advisory: the orchestrator always re-verifies with the gateway
// before settling an order.
type Callback struct {
	Provider      Provider
	TransactionID string
	OrderNumber   string
	Status        GatewayStatus
	Amount        decimal.Decimal
	PaidAt        *time.Time
	// RawPayload is the original callback body
	RawPayload string
	// Signature authenticates the callback
	Signature string
}

// RefundRequest asks the gateway to return funds for a settled payment
type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	Provider      Provider
}

// Validate validates the refund request
func (r *RefundRequest) Validate() error {
	if r.TransactionID == "" {
		return ErrInvalidQueryParams
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !r.Provider.IsValid() {
		return ErrInvalidProvider
	}
	return nil
}

// RefundResult is the gateway's answer to a refund request
type RefundResult struct {
	RefundID   string
	Status     GatewayStatus
	Amount     decimal.Decimal
	RefundedAt *time.Time
}

// ---------------------------------------------------------------------------
// Gateway Port Interface
// ---------------------------------------------------------------------------

// Gateway is the port for external payment processors. Implementations
// live in the infrastructure layer.
type Gateway interface {
	// Provider returns which processor this gateway talks to
	Provider() Provider

	// Initiate opens a payment session and returns the handle the payer
	// needs to complete it
	Initiate(ctx context.Context, req *InitiateRequest) (*Handle, error)

	// Verify fetches the authoritative payment result. Safe to call any
	// number of times for the same transaction.
	Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error)

	// Refund returns funds for a settled payment
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// ParseCallback verifies the signature and decodes a pushed
	// notification. Returns ErrInvalidSignature on a bad signature.
	ParseCallback(ctx context.Context, payload []byte, signature string) (*Callback, error)
}

// Registry resolves the gateway for a provider
type Registry interface {
	// Gateway returns the gateway registered for the provider
	Gateway(provider Provider) (Gateway, error)

	// Providers lists the providers with a registered gateway
	Providers() []Provider
}
