package order

import (
	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated      = "OrderCreated"
	EventTypeOrderPaid         = "OrderPaid"
	EventTypeOrderCancelled    = "OrderCancelled"
	EventTypeOrderRefunded     = "OrderRefunded"
	EventTypeSubOrderShipped   = "SubOrderShipped"
	EventTypeSubOrderDelivered = "SubOrderDelivered"
)

// OrderItemInfo represents item information for events
type OrderItemInfo struct {
	ItemID          uuid.UUID       `json:"item_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName     string          `json:"product_name"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

func itemInfos(items []OrderItem) []OrderItemInfo {
	infos := make([]OrderItemInfo, len(items))
	for i, item := range items {
		infos[i] = OrderItemInfo{
			ItemID:          item.ID,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			TotalPrice:      item.TotalPrice,
		}
	}
	return infos
}

// OrderCreatedEvent is raised when a new order is assembled at checkout
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	SubOrders   int             `json:"sub_orders"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		TotalAmount:     o.TotalAmount,
		FinalAmount:     o.FinalAmount,
		SubOrders:       len(o.SubOrders),
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderPaidEvent is raised when the gateway confirms payment.
// This event triggers coupon usage commitment and fulfillment start.
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CouponID      *uuid.UUID      `json:"coupon_id,omitempty"`
	TransactionID string          `json:"transaction_id"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CouponID:        o.CouponID,
		TransactionID:   o.TransactionID,
		FinalAmount:     o.FinalAmount,
	}
}

// EventType returns the event type name
func (e *OrderPaidEvent) EventType() string {
	return EventTypeOrderPaid
}

// OrderCancelledEvent is raised when an order is cancelled.
// Reserved stock must be released for every item in the order.
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CouponID     *uuid.UUID      `json:"coupon_id,omitempty"`
	CancelReason string          `json:"cancel_reason"`
	WasPaid      bool            `json:"was_paid"`
	Items        []OrderItemInfo `json:"items"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	var items []OrderItemInfo
	for idx := range o.SubOrders {
		items = append(items, itemInfos(o.SubOrders[idx].Items)...)
	}

	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CouponID:        o.CouponID,
		CancelReason:    o.CancelReason,
		WasPaid:         o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusRefunded,
		Items:           items,
	}
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}

// OrderRefundedEvent is raised when a cancelled, paid order is refunded
type OrderRefundedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// NewOrderRefundedEvent creates a new OrderRefundedEvent
func NewOrderRefundedEvent(o *Order) *OrderRefundedEvent {
	return &OrderRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRefunded, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		RefundAmount:    o.FinalAmount,
	}
}

// EventType returns the event type name
func (e *OrderRefundedEvent) EventType() string {
	return EventTypeOrderRefunded
}

// SubOrderShippedEvent is raised when a seller ships their sub-order
type SubOrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	SubOrderID     uuid.UUID       `json:"sub_order_id"`
	SellerID       uuid.UUID       `json:"seller_id"`
	TrackingNumber string          `json:"tracking_number"`
	Items          []OrderItemInfo `json:"items"`
}

// NewSubOrderShippedEvent creates a new SubOrderShippedEvent
func NewSubOrderShippedEvent(o *Order, sub *SubOrder) *SubOrderShippedEvent {
	return &SubOrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubOrderShipped, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		SubOrderID:      sub.ID,
		SellerID:        sub.SellerID,
		TrackingNumber:  sub.TrackingNumber,
		Items:           itemInfos(sub.Items),
	}
}

// EventType returns the event type name
func (e *SubOrderShippedEvent) EventType() string {
	return EventTypeSubOrderShipped
}

// SubOrderDeliveredEvent is raised when a sub-order reaches the customer
type SubOrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	SubOrderID uuid.UUID `json:"sub_order_id"`
	SellerID   uuid.UUID `json:"seller_id"`
}

// NewSubOrderDeliveredEvent creates a new SubOrderDeliveredEvent
func NewSubOrderDeliveredEvent(o *Order, sub *SubOrder) *SubOrderDeliveredEvent {
	return &SubOrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		SubOrderID:      sub.ID,
		SellerID:        sub.SellerID,
	}
}

// EventType returns the event type name
func (e *SubOrderDeliveredEvent) EventType() string {
	return EventTypeSubOrderDelivered
}
