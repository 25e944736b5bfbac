package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the fulfillment status of an order or sub-order
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states with no outgoing transitions
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	}
	return false
}

// PaymentStatus is the parallel, independent payment state machine
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states with no outgoing transitions
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// CanTransitionTo checks if the payment status can transition to the target
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPaid:
		return target == PaymentStatusRefunded
	}
	return false
}

// PaymentMethod identifies how the customer pays
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodWallet   PaymentMethod = "WALLET"
	PaymentMethodDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// IsValid checks if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodWallet, PaymentMethodDelivery:
		return true
	}
	return false
}

// OrderItem is a line of a sub-order. PriceAtPurchase is frozen at
// checkout time and TotalPrice is never recomputed afterwards, so later
// catalog price changes cannot alter a settled order.
type OrderItem struct {
	shared.BaseEntity
	SubOrderID      uuid.UUID
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	ProductName     string
	Quantity        int64
	PriceAtPurchase decimal.Decimal
	TotalPrice      decimal.Decimal
}

// NewOrderItem creates an order item with the purchase price frozen
func NewOrderItem(productID uuid.UUID, variantID *uuid.UUID, productName string, quantity int64, priceAtPurchase decimal.Decimal) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if priceAtPurchase.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Purchase price cannot be negative")
	}

	return &OrderItem{
		BaseEntity:      shared.NewBaseEntity(),
		ProductID:       productID,
		VariantID:       variantID,
		ProductName:     productName,
		Quantity:        quantity,
		PriceAtPurchase: priceAtPurchase,
		TotalPrice:      priceAtPurchase.Mul(decimal.NewFromInt(quantity)).Round(2),
	}, nil
}

// SubOrder is the portion of an order belonging to one seller. Its
// fulfillment progresses independently of sibling sub-orders.
type SubOrder struct {
	shared.BaseEntity
	OrderID        uuid.UUID
	SellerID       uuid.UUID
	Subtotal       decimal.Decimal
	Status         Status
	TrackingNumber string
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
	Items          []OrderItem
}

// NewSubOrder creates a sub-order from its items; the subtotal is the sum
// of the item totals.
func NewSubOrder(sellerID uuid.UUID, items []*OrderItem) (*SubOrder, error) {
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Sub-order must have at least one item")
	}

	sub := &SubOrder{
		BaseEntity: shared.NewBaseEntity(),
		SellerID:   sellerID,
		Status:     StatusPending,
		Subtotal:   decimal.Zero,
		Items:      make([]OrderItem, 0, len(items)),
	}
	for _, item := range items {
		item.SubOrderID = sub.ID
		sub.Items = append(sub.Items, *item)
		sub.Subtotal = sub.Subtotal.Add(item.TotalPrice)
	}

	return sub, nil
}

// transition moves the sub-order to target, tolerating repeats of a
// terminal state so status updates are idempotent.
func (s *SubOrder) transition(target Status) error {
	if s.Status == target && target.IsTerminal() {
		return nil
	}
	if !s.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move sub-order from %s to %s", s.Status, target))
	}
	s.Status = target
	s.Touch()
	return nil
}

// StartProcessing moves the sub-order to PROCESSING
func (s *SubOrder) StartProcessing() error {
	return s.transition(StatusProcessing)
}

// Ship marks the sub-order shipped with the carrier tracking number
func (s *SubOrder) Ship(trackingNumber string) error {
	if trackingNumber == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Tracking number is required")
	}
	if err := s.transition(StatusShipped); err != nil {
		return err
	}
	now := time.Now()
	s.TrackingNumber = trackingNumber
	s.ShippedAt = &now
	return nil
}

// Deliver marks the sub-order delivered
func (s *SubOrder) Deliver() error {
	if err := s.transition(StatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	s.DeliveredAt = &now
	return nil
}

// Cancel cancels the sub-order
func (s *SubOrder) Cancel() error {
	if err := s.transition(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	s.CancelledAt = &now
	return nil
}

// Order is the aggregate root for a customer order. It exclusively owns
// its SubOrders and, through them, the OrderItems. Financial fields are
// fixed at creation; only statuses change afterwards.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber    string
	CustomerID     uuid.UUID
	AddressID      uuid.UUID
	CouponID       *uuid.UUID
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingFee    decimal.Decimal
	TaxAmount      decimal.Decimal
	FinalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	TransactionID  string
	Status         Status
	CancelReason   string
	PaidAt         *time.Time
	CancelledAt    *time.Time
	SubOrders      []SubOrder
}

// NewOrder assembles an order from its sub-orders. TotalAmount is the sum
// of sub-order subtotals; FinalAmount always equals
// TotalAmount - DiscountAmount + ShippingFee + TaxAmount.
func NewOrder(orderNumber string, customerID, addressID uuid.UUID, method PaymentMethod, subOrders []*SubOrder, shippingFee, taxAmount decimal.Decimal) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if addressID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Address ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if len(subOrders) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must have at least one sub-order")
	}
	if shippingFee.IsNegative() || taxAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Shipping fee and tax cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		AddressID:         addressID,
		PaymentMethod:     method,
		PaymentStatus:     PaymentStatusPending,
		Status:            StatusPending,
		DiscountAmount:    decimal.Zero,
		ShippingFee:       shippingFee,
		TaxAmount:         taxAmount,
		SubOrders:         make([]SubOrder, 0, len(subOrders)),
	}
	total := decimal.Zero
	for _, sub := range subOrders {
		sub.OrderID = o.ID
		for idx := range sub.Items {
			sub.Items[idx].SubOrderID = sub.ID
		}
		o.SubOrders = append(o.SubOrders, *sub)
		total = total.Add(sub.Subtotal)
	}
	o.TotalAmount = total
	o.recalculateFinal()

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// ApplyCouponDiscount records the coupon discount computed at checkout.
// The value is stored immutably on the order; later coupon changes never
// re-price a settled order. Allowed only before payment settles.
func (o *Order) ApplyCouponDiscount(couponID uuid.UUID, value decimal.Decimal) error {
	if o.Status != StatusPending || o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply discount after settlement started")
	}
	if value.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if value.GreaterThan(o.TotalAmount) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed total amount")
	}

	o.CouponID = &couponID
	o.DiscountAmount = value
	o.recalculateFinal()
	o.Touch()

	return nil
}

// AttachTransaction binds the gateway transaction opened for this order
// so callbacks can find it by transaction ID. Allowed only while payment
// is pending.
func (o *Order) AttachTransaction(transactionID string) error {
	if transactionID == "" {
		return shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Payment already settled")
	}

	o.TransactionID = transactionID
	o.Touch()

	return nil
}

// MarkPaid records a confirmed payment and moves the order and its
// sub-orders into processing. Idempotent: repeating on a paid order is a
// no-op so duplicate gateway callbacks cannot double-settle.
func (o *Order) MarkPaid(transactionID string) error {
	if o.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusPaid) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark payment %s as paid", o.PaymentStatus))
	}

	now := time.Now()
	o.PaymentStatus = PaymentStatusPaid
	o.TransactionID = transactionID
	o.PaidAt = &now
	for idx := range o.SubOrders {
		if o.SubOrders[idx].Status == StatusPending {
			// suborders follow the order into processing on payment
			_ = o.SubOrders[idx].StartProcessing()
		}
	}
	o.refreshStatus()
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderPaidEvent(o))

	return nil
}

// MarkPaymentFailed records a failed payment and cancels the whole order.
// Idempotent on an already failed payment.
func (o *Order) MarkPaymentFailed(reason string) error {
	if o.PaymentStatus == PaymentStatusFailed {
		return nil
	}
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusFailed) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark payment %s as failed", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusFailed
	if err := o.Cancel(reason); err != nil {
		return err
	}

	return nil
}

// Cancel cancels the order and every cancellable sub-order. Allowed only
// while the order is PENDING or PROCESSING. Repeating on a cancelled
// order is a no-op.
func (o *Order) Cancel(reason string) error {
	if o.Status == StatusCancelled {
		return nil
	}
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	for idx := range o.SubOrders {
		if err := o.SubOrders[idx].Cancel(); err != nil {
			return err
		}
	}

	now := time.Now()
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o))

	return nil
}

// Refund records a refunded payment for a cancelled, paid order
func (o *Order) Refund() error {
	if o.PaymentStatus == PaymentStatusRefunded {
		return nil
	}
	if o.Status != StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Only cancelled orders can be refunded")
	}
	if !o.PaymentStatus.CanTransitionTo(PaymentStatusRefunded) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot refund payment in %s status", o.PaymentStatus))
	}

	o.PaymentStatus = PaymentStatusRefunded
	o.Touch()

	o.AddDomainEvent(NewOrderRefundedEvent(o))

	return nil
}

// SubOrderByID returns the sub-order with the given ID, or nil
func (o *Order) SubOrderByID(subOrderID uuid.UUID) *SubOrder {
	for idx := range o.SubOrders {
		if o.SubOrders[idx].ID == subOrderID {
			return &o.SubOrders[idx]
		}
	}
	return nil
}

// ShipSubOrder marks one seller's sub-order shipped and refreshes the
// derived order status.
func (o *Order) ShipSubOrder(subOrderID uuid.UUID, trackingNumber string) error {
	sub := o.SubOrderByID(subOrderID)
	if sub == nil {
		return shared.NewDomainError("SUBORDER_NOT_FOUND", "Sub-order not found")
	}
	if err := sub.Ship(trackingNumber); err != nil {
		return err
	}
	o.refreshStatus()
	o.Touch()

	o.AddDomainEvent(NewSubOrderShippedEvent(o, sub))

	return nil
}

// DeliverSubOrder marks one seller's sub-order delivered and refreshes
// the derived order status.
func (o *Order) DeliverSubOrder(subOrderID uuid.UUID) error {
	sub := o.SubOrderByID(subOrderID)
	if sub == nil {
		return shared.NewDomainError("SUBORDER_NOT_FOUND", "Sub-order not found")
	}
	if err := sub.Deliver(); err != nil {
		return err
	}
	o.refreshStatus()
	o.Touch()

	o.AddDomainEvent(NewSubOrderDeliveredEvent(o, sub))

	return nil
}

// refreshStatus derives the order status from its sub-orders. The order
// is DELIVERED only when every sub-order is delivered and CANCELLED only
// when every sub-order is cancelled; mixed progress maps to the least
// advanced active sub-order.
func (o *Order) refreshStatus() {
	if len(o.SubOrders) == 0 {
		return
	}

	var pending, processing, shipped, delivered, cancelled int
	for idx := range o.SubOrders {
		switch o.SubOrders[idx].Status {
		case StatusPending:
			pending++
		case StatusProcessing:
			processing++
		case StatusShipped:
			shipped++
		case StatusDelivered:
			delivered++
		case StatusCancelled:
			cancelled++
		}
	}

	total := len(o.SubOrders)
	switch {
	case cancelled == total:
		o.Status = StatusCancelled
	case delivered+cancelled == total:
		o.Status = StatusDelivered
	case shipped+delivered+cancelled == total:
		o.Status = StatusShipped
	case pending == 0:
		o.Status = StatusProcessing
	default:
		o.Status = StatusPending
	}
}

// recalculateFinal maintains the financial invariant
func (o *Order) recalculateFinal() {
	o.FinalAmount = o.TotalAmount.
		Sub(o.DiscountAmount).
		Add(o.ShippingFee).
		Add(o.TaxAmount).
		Round(2)
}

// AmountsConsistent verifies the financial invariant; persistence refuses
// to save an order that fails it.
func (o *Order) AmountsConsistent() bool {
	expected := o.TotalAmount.Sub(o.DiscountAmount).Add(o.ShippingFee).Add(o.TaxAmount).Round(2)
	if !o.FinalAmount.Equal(expected) {
		return false
	}
	for idx := range o.SubOrders {
		sum := decimal.Zero
		for _, item := range o.SubOrders[idx].Items {
			sum = sum.Add(item.TotalPrice)
		}
		if !o.SubOrders[idx].Subtotal.Equal(sum) {
			return false
		}
	}
	return true
}

// IsCancelled returns true if the order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// IsAwaitingPayment returns true while payment has not settled
func (o *Order) IsAwaitingPayment() bool {
	return o.PaymentStatus == PaymentStatusPending
}

// IsPaid returns true if payment settled successfully
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}
