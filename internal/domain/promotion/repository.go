package promotion

import (
	"context"

	"github.com/google/uuid"
)

// CouponRepository provides access to coupons.
// IncrementUsage and DecrementUsage are conditional, atomic counter
// updates so concurrent checkouts cannot overrun a usage limit.
type CouponRepository interface {
	// FindByID finds a coupon by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	// FindByCode finds a coupon by its normalized code
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Save creates or updates a coupon
	Save(ctx context.Context, coupon *Coupon) error
	// IncrementUsage atomically increments usage_count, guarded by the
	// usage limit. Returns shared.ErrConcurrencyConflict when the limit
	// was reached by a concurrent commit.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	// DecrementUsage atomically decrements usage_count, flooring at zero.
	// Used when a committed usage is rolled back after a refund.
	DecrementUsage(ctx context.Context, id uuid.UUID) error
}
