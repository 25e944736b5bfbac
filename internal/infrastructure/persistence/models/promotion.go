package models

import (
	"time"

	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shopspring/decimal"
)

// CouponModel is the persistence model for the Coupon aggregate root.
type CouponModel struct {
	AggregateModel
	Code            string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	DiscountType    promotion.DiscountType `gorm:"type:varchar(20);not null"`
	DiscountAmount  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	MinimumPurchase *decimal.Decimal       `gorm:"type:decimal(18,4)"`
	StartDate       time.Time              `gorm:"not null"`
	EndDate         time.Time              `gorm:"not null"`
	UsageLimit      *int64
	UsageCount      int64 `gorm:"not null;default:0"`
	IsActive        bool  `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon aggregate.
func (m *CouponModel) ToDomain() *promotion.Coupon {
	return &promotion.Coupon{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		DiscountType:      m.DiscountType,
		DiscountAmount:    m.DiscountAmount,
		MinimumPurchase:   m.MinimumPurchase,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		UsageLimit:        m.UsageLimit,
		UsageCount:        m.UsageCount,
		IsActive:          m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Coupon aggregate.
func (m *CouponModel) FromDomain(c *promotion.Coupon) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.DiscountType = c.DiscountType
	m.DiscountAmount = c.DiscountAmount
	m.MinimumPurchase = c.MinimumPurchase
	m.StartDate = c.StartDate
	m.EndDate = c.EndDate
	m.UsageLimit = c.UsageLimit
	m.UsageCount = c.UsageCount
	m.IsActive = c.IsActive
}

// CouponModelFromDomain creates a new persistence model from a domain Coupon aggregate.
func CouponModelFromDomain(c *promotion.Coupon) *CouponModel {
	m := &CouponModel{}
	m.FromDomain(c)
	return m
}
