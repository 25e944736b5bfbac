package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCouponRepository implements promotion.CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	var model models.CouponModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a coupon with optimistic locking
func (r *GormCouponRepository) Save(ctx context.Context, coupon *promotion.Coupon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version int
		err := tx.Model(&models.CouponModel{}).
			Select("version").
			Where("id = ?", coupon.ID).
			Scan(&version).Error
		if err != nil {
			return err
		}

		if version == 0 {
			return tx.Create(models.CouponModelFromDomain(coupon)).Error
		}

		if version != coupon.Version {
			return shared.ErrConcurrencyConflict
		}

		coupon.IncrementVersion()
		coupon.UpdatedAt = time.Now()

		result := tx.Model(&models.CouponModel{}).
			Where("id = ? AND version = ?", coupon.ID, version).
			Updates(map[string]interface{}{
				"discount_type":    coupon.DiscountType,
				"discount_amount":  coupon.DiscountAmount,
				"minimum_purchase": coupon.MinimumPurchase,
				"start_date":       coupon.StartDate,
				"end_date":         coupon.EndDate,
				"usage_limit":      coupon.UsageLimit,
				"usage_count":      coupon.UsageCount,
				"is_active":        coupon.IsActive,
				"version":          coupon.Version,
				"updated_at":       coupon.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// IncrementUsage atomically increments usage_count, guarded by the usage
// limit. Returns shared.ErrConcurrencyConflict when the limit was
// reached by a concurrent commit.
func (r *GormCouponRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.CouponModel{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.CouponModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// DecrementUsage atomically decrements usage_count, flooring at zero
func (r *GormCouponRepository) DecrementUsage(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.CouponModel{}).
		Where("id = ? AND usage_count > 0", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count - 1"),
			"updated_at":  time.Now(),
		})
	return result.Error
}

var _ promotion.CouponRepository = (*GormCouponRepository)(nil)
