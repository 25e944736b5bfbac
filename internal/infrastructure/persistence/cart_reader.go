package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/cart"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCartReader implements cart.Reader using GORM
type GormCartReader struct {
	db *gorm.DB
}

// NewGormCartReader creates a new GormCartReader
func NewGormCartReader(db *gorm.DB) *GormCartReader {
	return &GormCartReader{db: db}
}

// ReadCart loads the customer's cart lines in the order they were
// added. An empty cart is an error: checkout has nothing to work with.
func (r *GormCartReader) ReadCart(ctx context.Context, customerID uuid.UUID) ([]cart.CartLine, error) {
	var items []models.CartItemModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, shared.ErrEmptyCart
	}

	lines := make([]cart.CartLine, 0, len(items))
	for i := range items {
		lines = append(lines, items[i].ToDomain())
	}
	return lines, nil
}

var _ cart.Reader = (*GormCartReader)(nil)
