package pricing

import (
	"time"

	"github.com/shop/backend/internal/domain/cart"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// LinePrice is the priced result for a single cart line.
// Amounts are rounded to two decimal places, half-up.
type LinePrice struct {
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// CouponEvaluation is the outcome of evaluating a coupon against a
// subtotal. Invalid coupons carry a reason instead of an error so the
// storefront can render a specific message.
type CouponEvaluation struct {
	Valid         bool
	DiscountValue decimal.Decimal
	Reason        promotion.RejectionReason
}

// PriceLine computes the final unit price and line total for a cart line.
// Variant-level price and discount override the product-level values when
// the line selects a variant.
func PriceLine(line cart.CartLine, product *catalog.Product) LinePrice {
	base := product.BasePrice
	discount := product.DiscountPercentage

	if line.HasVariant() {
		if variant := product.Variant(*line.VariantID); variant != nil {
			if variant.Price.GreaterThan(decimal.Zero) {
				base = variant.Price
			}
			if variant.DiscountPercentage.GreaterThan(decimal.Zero) {
				discount = variant.DiscountPercentage
			}
		}
	}

	unit := base.Mul(oneHundred.Sub(discount)).Div(oneHundred).Round(2)
	total := unit.Mul(decimal.NewFromInt(line.Quantity)).Round(2)

	return LinePrice{UnitPrice: unit, LineTotal: total}
}

// EvaluateCoupon evaluates a coupon against a cart subtotal at the given
// instant. A fixed discount is capped at the subtotal so the discount
// never exceeds what is being bought.
func EvaluateCoupon(coupon *promotion.Coupon, subtotal decimal.Decimal, now time.Time) CouponEvaluation {
	ok, reason := coupon.Applicability(subtotal, now)
	if !ok {
		return CouponEvaluation{Valid: false, DiscountValue: decimal.Zero, Reason: reason}
	}

	var value decimal.Decimal
	switch coupon.DiscountType {
	case promotion.DiscountTypePercentage:
		value = subtotal.Mul(coupon.DiscountAmount).Div(oneHundred).Round(2)
	default:
		value = decimal.Min(coupon.DiscountAmount, subtotal)
	}

	return CouponEvaluation{Valid: true, DiscountValue: value}
}
