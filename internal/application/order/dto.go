package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderItemResponse is one line of a sub-order as returned to clients
type OrderItemResponse struct {
	ItemID          uuid.UUID       `json:"item_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName     string          `json:"product_name"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// SubOrderResponse is one seller's portion as returned to clients
type SubOrderResponse struct {
	SubOrderID     uuid.UUID           `json:"sub_order_id"`
	SellerID       uuid.UUID           `json:"seller_id"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Status         string              `json:"status"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	Items          []OrderItemResponse `json:"items"`
}

// OrderResponse is the full order view
type OrderResponse struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	AddressID      uuid.UUID          `json:"address_id"`
	CouponID       *uuid.UUID         `json:"coupon_id,omitempty"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	ShippingFee    decimal.Decimal    `json:"shipping_fee"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	FinalAmount    decimal.Decimal    `json:"final_amount"`
	PaymentMethod  string             `json:"payment_method"`
	PaymentStatus  string             `json:"payment_status"`
	TransactionID  string             `json:"transaction_id,omitempty"`
	Status         string             `json:"status"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	SubOrders      []SubOrderResponse `json:"sub_orders"`
}

// OrderListItemResponse is the condensed view for listings
type OrderListItemResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	PaymentStatus string          `json:"payment_status"`
	Status        string          `json:"status"`
	SubOrders     int             `json:"sub_orders"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderListFilter narrows order listings
type OrderListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Status   string `form:"status"`
}

// CancelOrderRequest carries the cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ShipSubOrderRequest carries the carrier tracking number
type ShipSubOrderRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// ToOrderResponse maps an order aggregate to its response
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		CustomerID:     o.CustomerID,
		AddressID:      o.AddressID,
		CouponID:       o.CouponID,
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		ShippingFee:    o.ShippingFee,
		TaxAmount:      o.TaxAmount,
		FinalAmount:    o.FinalAmount,
		PaymentMethod:  string(o.PaymentMethod),
		PaymentStatus:  o.PaymentStatus.String(),
		TransactionID:  o.TransactionID,
		Status:         o.Status.String(),
		CancelReason:   o.CancelReason,
		PaidAt:         o.PaidAt,
		CancelledAt:    o.CancelledAt,
		CreatedAt:      o.CreatedAt,
		SubOrders:      make([]SubOrderResponse, 0, len(o.SubOrders)),
	}
	for idx := range o.SubOrders {
		sub := &o.SubOrders[idx]
		subResp := SubOrderResponse{
			SubOrderID:     sub.ID,
			SellerID:       sub.SellerID,
			Subtotal:       sub.Subtotal,
			Status:         sub.Status.String(),
			TrackingNumber: sub.TrackingNumber,
			ShippedAt:      sub.ShippedAt,
			DeliveredAt:    sub.DeliveredAt,
			Items:          make([]OrderItemResponse, 0, len(sub.Items)),
		}
		for _, item := range sub.Items {
			subResp.Items = append(subResp.Items, OrderItemResponse{
				ItemID:          item.ID,
				ProductID:       item.ProductID,
				VariantID:       item.VariantID,
				ProductName:     item.ProductName,
				Quantity:        item.Quantity,
				PriceAtPurchase: item.PriceAtPurchase,
				TotalPrice:      item.TotalPrice,
			})
		}
		resp.SubOrders = append(resp.SubOrders, subResp)
	}
	return resp
}

// ToOrderListItemResponse maps an order to its condensed listing view
func ToOrderListItemResponse(o *order.Order) OrderListItemResponse {
	return OrderListItemResponse{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		FinalAmount:   o.FinalAmount,
		PaymentStatus: o.PaymentStatus.String(),
		Status:        o.Status.String(),
		SubOrders:     len(o.SubOrders),
		CreatedAt:     o.CreatedAt,
	}
}
