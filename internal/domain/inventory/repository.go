package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// Reservation pairs a sellable unit with the quantity to reserve
type Reservation struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int64
}

// UnitKey identifies a sellable unit. Products without variants use
// uuid.Nil for VariantID.
type UnitKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// StockRepository persists stock items. Reserve and Release are atomic
// at the row level: implementations use a conditional update so two
// concurrent checkouts can never reserve the same unit twice.
type StockRepository interface {
	// FindByUnit loads the stock item for a product/variant pair
	FindByUnit(ctx context.Context, productID, variantID uuid.UUID) (*StockItem, error)

	// FindByUnits loads stock items for several units at once
	FindByUnits(ctx context.Context, keys []UnitKey) ([]StockItem, error)

	// Reserve atomically moves quantity from available to reserved and
	// appends a RESERVE ledger entry. Returns InsufficientStockError when
	// the available quantity does not cover the request.
	Reserve(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error

	// Release atomically returns reserved quantity to available and
	// appends a RELEASE ledger entry
	Release(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error

	// Commit atomically burns reserved quantity on confirmed payment and
	// appends a COMMIT ledger entry
	Commit(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error

	// Restock atomically adds quantity back to available after a refund
	// and appends a RESTOCK ledger entry
	Restock(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error

	// Save persists a stock item with optimistic locking
	Save(ctx context.Context, item *StockItem) error
}

// LedgerRepository reads the append-only movement history
type LedgerRepository interface {
	// FindByUnit lists movements for a product/variant pair, newest first
	FindByUnit(ctx context.Context, productID, variantID uuid.UUID, filter shared.Filter) ([]StockLedgerEntry, error)

	// FindByOrder lists movements recorded against an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StockLedgerEntry, error)
}
