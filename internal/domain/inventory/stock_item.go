package inventory

import (
	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// StockItem tracks quantities for a sellable unit. The composite
// identifier is ProductID + VariantID; products without variants use
// uuid.Nil as the variant key. Available and Reserved move in lockstep:
// reserving moves units from available to reserved, confirming a sale
// burns reserved units, releasing returns them.
type StockItem struct {
	shared.BaseAggregateRoot
	ProductID uuid.UUID
	VariantID uuid.UUID
	SellerID  uuid.UUID
	Available int64
	Reserved  int64
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates a stock record for a product or variant
func NewStockItem(productID, variantID, sellerID uuid.UUID, initial int64) (*StockItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if initial < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Initial quantity cannot be negative")
	}

	return &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		VariantID:         variantID,
		SellerID:          sellerID,
		Available:         initial,
	}, nil
}

// Total returns available plus reserved units
func (s *StockItem) Total() int64 {
	return s.Available + s.Reserved
}

// CanFulfill returns true if the available quantity covers the request
func (s *StockItem) CanFulfill(quantity int64) bool {
	return s.Available >= quantity
}

// Reserve moves units from available to reserved for a pending order
func (s *StockItem) Reserve(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if s.Available < quantity {
		return &shared.InsufficientStockError{
			ProductID: s.ProductID.String(),
			VariantID: s.VariantID.String(),
			Requested: quantity,
			Available: s.Available,
		}
	}

	s.Available -= quantity
	s.Reserved += quantity
	s.Touch()
	s.IncrementVersion()

	return nil
}

// Release returns reserved units to available after a cancellation or a
// failed payment.
func (s *StockItem) Release(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if s.Reserved < quantity {
		return shared.NewDomainError("INVALID_RELEASE", "Cannot release more than is reserved")
	}

	s.Reserved -= quantity
	s.Available += quantity
	s.Touch()
	s.IncrementVersion()

	return nil
}

// Commit burns reserved units once payment settles
func (s *StockItem) Commit(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Commit quantity must be positive")
	}
	if s.Reserved < quantity {
		return shared.NewDomainError("INVALID_COMMIT", "Cannot commit more than is reserved")
	}

	s.Reserved -= quantity
	s.Touch()
	s.IncrementVersion()

	return nil
}

// Restock adds units to available
func (s *StockItem) Restock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}

	s.Available += quantity
	s.Touch()
	s.IncrementVersion()

	return nil
}
