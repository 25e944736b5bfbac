package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// Repository defines the persistence contract for the Order aggregate.
// Implementations save the order, its sub-orders and items in one
// transaction.
type Repository interface {
	// FindByID loads an order with its sub-orders and items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its human-readable number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByTransactionID finds the order bound to a gateway transaction
	FindByTransactionID(ctx context.Context, transactionID string) (*Order, error)

	// FindByCustomer lists a customer's orders with filtering
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindBySeller lists orders containing a sub-order for the seller
	FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindStalePending lists orders that have been awaiting payment since
	// before the cutoff; used by the payment timeout sweeper
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)

	// Save persists the whole aggregate with optimistic locking
	Save(ctx context.Context, o *Order) error

	// NextOrderNumber issues the next sequential order number
	NextOrderNumber(ctx context.Context) (string, error)
}
