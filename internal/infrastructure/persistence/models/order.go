package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber    string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	AddressID      uuid.UUID           `gorm:"type:uuid;not null"`
	CouponID       *uuid.UUID          `gorm:"type:uuid;index"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingFee    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	FinalAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod  order.PaymentMethod `gorm:"type:varchar(30);not null"`
	PaymentStatus  order.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TransactionID  string              `gorm:"type:varchar(128);index"`
	Status         order.Status        `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CancelReason   string              `gorm:"type:varchar(500)"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
	SubOrders      []SubOrderModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		AddressID:         m.AddressID,
		CouponID:          m.CouponID,
		TotalAmount:       m.TotalAmount,
		DiscountAmount:    m.DiscountAmount,
		ShippingFee:       m.ShippingFee,
		TaxAmount:         m.TaxAmount,
		FinalAmount:       m.FinalAmount,
		PaymentMethod:     m.PaymentMethod,
		PaymentStatus:     m.PaymentStatus,
		TransactionID:     m.TransactionID,
		Status:            m.Status,
		CancelReason:      m.CancelReason,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		SubOrders:         make([]order.SubOrder, len(m.SubOrders)),
	}
	for i := range m.SubOrders {
		o.SubOrders[i] = *m.SubOrders[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order aggregate.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerID = o.CustomerID
	m.AddressID = o.AddressID
	m.CouponID = o.CouponID
	m.TotalAmount = o.TotalAmount
	m.DiscountAmount = o.DiscountAmount
	m.ShippingFee = o.ShippingFee
	m.TaxAmount = o.TaxAmount
	m.FinalAmount = o.FinalAmount
	m.PaymentMethod = o.PaymentMethod
	m.PaymentStatus = o.PaymentStatus
	m.TransactionID = o.TransactionID
	m.Status = o.Status
	m.CancelReason = o.CancelReason
	m.PaidAt = o.PaidAt
	m.CancelledAt = o.CancelledAt
	m.SubOrders = make([]SubOrderModel, len(o.SubOrders))
	for i := range o.SubOrders {
		m.SubOrders[i] = *SubOrderModelFromDomain(&o.SubOrders[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order aggregate.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// SubOrderModel is the persistence model for the SubOrder entity.
type SubOrderModel struct {
	BaseModel
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status         order.Status    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	TrackingNumber string          `gorm:"type:varchar(100)"`
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
	Items          []OrderItemModel `gorm:"foreignKey:SubOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (SubOrderModel) TableName() string {
	return "sub_orders"
}

// ToDomain converts the persistence model to a domain SubOrder entity.
func (m *SubOrderModel) ToDomain() *order.SubOrder {
	sub := &order.SubOrder{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrderID:        m.OrderID,
		SellerID:       m.SellerID,
		Subtotal:       m.Subtotal,
		Status:         m.Status,
		TrackingNumber: m.TrackingNumber,
		ShippedAt:      m.ShippedAt,
		DeliveredAt:    m.DeliveredAt,
		CancelledAt:    m.CancelledAt,
		Items:          make([]order.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		sub.Items[i] = *m.Items[i].ToDomain()
	}
	return sub
}

// SubOrderModelFromDomain creates a new persistence model from a domain SubOrder entity.
func SubOrderModelFromDomain(s *order.SubOrder) *SubOrderModel {
	m := &SubOrderModel{
		OrderID:        s.OrderID,
		SellerID:       s.SellerID,
		Subtotal:       s.Subtotal,
		Status:         s.Status,
		TrackingNumber: s.TrackingNumber,
		ShippedAt:      s.ShippedAt,
		DeliveredAt:    s.DeliveredAt,
		CancelledAt:    s.CancelledAt,
		Items:          make([]OrderItemModel, len(s.Items)),
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	for i := range s.Items {
		m.Items[i] = *OrderItemModelFromDomain(&s.Items[i])
	}
	return m
}

// OrderItemModel is the persistence model for the OrderItem entity.
type OrderItemModel struct {
	BaseModel
	SubOrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID       *uuid.UUID      `gorm:"type:uuid"`
	ProductName     string          `gorm:"type:varchar(200);not null"`
	Quantity        int64           `gorm:"not null"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem entity.
func (m *OrderItemModel) ToDomain() *order.OrderItem {
	return &order.OrderItem{
		BaseEntity:      m.BaseModel.ToDomain(),
		SubOrderID:      m.SubOrderID,
		ProductID:       m.ProductID,
		VariantID:       m.VariantID,
		ProductName:     m.ProductName,
		Quantity:        m.Quantity,
		PriceAtPurchase: m.PriceAtPurchase,
		TotalPrice:      m.TotalPrice,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem entity.
func OrderItemModelFromDomain(i *order.OrderItem) *OrderItemModel {
	m := &OrderItemModel{
		SubOrderID:      i.SubOrderID,
		ProductID:       i.ProductID,
		VariantID:       i.VariantID,
		ProductName:     i.ProductName,
		Quantity:        i.Quantity,
		PriceAtPurchase: i.PriceAtPurchase,
		TotalPrice:      i.TotalPrice,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}
