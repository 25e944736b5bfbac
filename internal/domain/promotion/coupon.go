package promotion

import (
	"strings"
	"time"

	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountType determines how a coupon's amount is interpreted
type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "FIXED"
	DiscountTypePercentage DiscountType = "PERCENTAGE"
)

// IsValid checks if the discount type is a known value
func (t DiscountType) IsValid() bool {
	return t == DiscountTypeFixed || t == DiscountTypePercentage
}

// String returns the string representation of DiscountType
func (t DiscountType) String() string {
	return string(t)
}

// RejectionReason is the machine-readable reason a coupon is not applicable
type RejectionReason string

const (
	ReasonInactive       RejectionReason = "inactive"
	ReasonNotStarted     RejectionReason = "not_started"
	ReasonExpired        RejectionReason = "expired"
	ReasonUsageExhausted RejectionReason = "usage_exhausted"
	ReasonBelowMinimum   RejectionReason = "below_minimum"
)

// Coupon represents a discount coupon shared across orders.
// UsageCount is consumed only on confirmed payment, never during pricing
// preview, so a failed payment does not burn a customer's coupon.
type Coupon struct {
	shared.BaseAggregateRoot
	Code            string
	DiscountType    DiscountType
	DiscountAmount  decimal.Decimal
	MinimumPurchase *decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
	UsageLimit      *int64
	UsageCount      int64
	IsActive        bool
}

// NewCoupon creates a new coupon
func NewCoupon(code string, discountType DiscountType, amount decimal.Decimal, startDate, endDate time.Time) (*Coupon, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_COUPON_CODE", "Coupon code cannot be empty")
	}
	if !discountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_TYPE", "Unknown discount type")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_AMOUNT", "Discount amount must be positive")
	}
	if discountType == DiscountTypePercentage && amount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT_AMOUNT", "Percentage discount cannot exceed 100")
	}
	if endDate.Before(startDate) {
		return nil, shared.NewDomainError("INVALID_COUPON_WINDOW", "End date cannot precede start date")
	}

	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		DiscountType:      discountType,
		DiscountAmount:    amount,
		StartDate:         startDate,
		EndDate:           endDate,
		IsActive:          true,
	}, nil
}

// Applicability checks whether the coupon can be applied to a cart with
// the given subtotal at the given instant. It never returns an error;
// the reason tells the caller why the coupon was rejected.
func (c *Coupon) Applicability(subtotal decimal.Decimal, now time.Time) (bool, RejectionReason) {
	if !c.IsActive {
		return false, ReasonInactive
	}
	if now.Before(c.StartDate) {
		return false, ReasonNotStarted
	}
	if now.After(c.EndDate) {
		return false, ReasonExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false, ReasonUsageExhausted
	}
	if c.MinimumPurchase != nil && subtotal.LessThan(*c.MinimumPurchase) {
		return false, ReasonBelowMinimum
	}
	return true, ""
}

// HasRemainingUses returns true if the usage limit has not been reached
func (c *Coupon) HasRemainingUses() bool {
	return c.UsageLimit == nil || c.UsageCount < *c.UsageLimit
}

// Deactivate turns the coupon off
func (c *Coupon) Deactivate() {
	c.IsActive = false
	c.Touch()
}
