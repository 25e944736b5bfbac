package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogReader implements catalog.Reader using GORM
type GormCatalogReader struct {
	db *gorm.DB
}

// NewGormCatalogReader creates a new GormCatalogReader
func NewGormCatalogReader(db *gorm.DB) *GormCatalogReader {
	return &GormCatalogReader{db: db}
}

// FindByID loads a product with its variants
func (r *GormCatalogReader) FindByID(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&model, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads multiple products with their variants, keyed by ID
func (r *GormCatalogReader) FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	products := make(map[uuid.UUID]*catalog.Product, len(productIDs))
	if len(productIDs) == 0 {
		return products, nil
	}

	var items []models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", productIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}

	for i := range items {
		products[items[i].ID] = items[i].ToDomain()
	}
	return products, nil
}

var _ catalog.Reader = (*GormCatalogReader)(nil)
