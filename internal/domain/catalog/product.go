package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the read model of a catalog product as seen by checkout.
// Catalog CRUD lives in its own service; checkout only needs price,
// discount and seller ownership.
type Product struct {
	shared.BaseEntity
	SellerID           uuid.UUID
	Name               string
	SKU                string
	BasePrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	IsActive           bool
	Variants           []ProductVariant
}

// ProductVariant is the canonical variant representation. External
// surfaces (storefront listing, seller portal, checkout) project views
// from this single shape instead of keeping parallel near-duplicates.
type ProductVariant struct {
	shared.BaseEntity
	ProductID          uuid.UUID
	Name               string
	SKU                string
	Price              decimal.Decimal // overrides Product.BasePrice when set on a selected variant
	DiscountPercentage decimal.Decimal // overrides Product.DiscountPercentage
}

// Variant returns the variant with the given ID, or nil if absent
func (p *Product) Variant(variantID uuid.UUID) *ProductVariant {
	for idx := range p.Variants {
		if p.Variants[idx].ID == variantID {
			return &p.Variants[idx]
		}
	}
	return nil
}

// Reader provides read-only catalog access for the checkout pipeline.
// Stock mutation goes through the inventory reservation path, never here.
type Reader interface {
	// FindByID loads a product with its variants
	FindByID(ctx context.Context, productID uuid.UUID) (*Product, error)
	// FindByIDs loads multiple products with their variants, keyed by ID
	FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*Product, error)
}
