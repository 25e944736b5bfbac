package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/cart"
	"github.com/shopspring/decimal"
)

// CartItemModel is the persistence model for a customer's cart line.
// Checkout reads these lines; the cart service owns their lifecycle.
type CartItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID       *uuid.UUID      `gorm:"type:uuid"`
	Quantity        int64           `gorm:"not null"`
	PriceAtAddition decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain CartLine.
func (m *CartItemModel) ToDomain() cart.CartLine {
	return cart.CartLine{
		ProductID:       m.ProductID,
		VariantID:       m.VariantID,
		Quantity:        m.Quantity,
		PriceAtAddition: m.PriceAtAddition,
	}
}
