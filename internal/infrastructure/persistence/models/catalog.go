package models

import (
	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the catalog Product read model.
type ProductModel struct {
	BaseModel
	SellerID           uuid.UUID             `gorm:"type:uuid;not null;index"`
	Name               string                `gorm:"type:varchar(200);not null"`
	SKU                string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	BasePrice          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	DiscountPercentage decimal.Decimal       `gorm:"type:decimal(5,2);not null;default:0"`
	IsActive           bool                  `gorm:"not null;default:true;index"`
	Variants           []ProductVariantModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity:         m.BaseModel.ToDomain(),
		SellerID:           m.SellerID,
		Name:               m.Name,
		SKU:                m.SKU,
		BasePrice:          m.BasePrice,
		DiscountPercentage: m.DiscountPercentage,
		IsActive:           m.IsActive,
		Variants:           make([]catalog.ProductVariant, len(m.Variants)),
	}
	for i := range m.Variants {
		p.Variants[i] = *m.Variants[i].ToDomain()
	}
	return p
}

// ProductVariantModel is the persistence model for a product variant.
type ProductVariantModel struct {
	BaseModel
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name               string          `gorm:"type:varchar(200);not null"`
	SKU                string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Price              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain ProductVariant.
func (m *ProductVariantModel) ToDomain() *catalog.ProductVariant {
	return &catalog.ProductVariant{
		BaseEntity:         m.BaseModel.ToDomain(),
		ProductID:          m.ProductID,
		Name:               m.Name,
		SKU:                m.SKU,
		Price:              m.Price,
		DiscountPercentage: m.DiscountPercentage,
	}
}
