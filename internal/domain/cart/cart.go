package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is a single entry in a customer's cart at checkout time.
// It is read-only input to the checkout pipeline; the cart subsystem
// owns its lifecycle.
type CartLine struct {
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	Quantity        int64
	PriceAtAddition decimal.Decimal
}

// HasVariant returns true if the line selects a specific variant
func (l CartLine) HasVariant() bool {
	return l.VariantID != nil && *l.VariantID != uuid.Nil
}

// Reader loads the current cart contents for a customer.
// Implementations must return shared.ErrEmptyCart when no lines exist.
type Reader interface {
	ReadCart(ctx context.Context, customerID uuid.UUID) ([]CartLine, error)
}
