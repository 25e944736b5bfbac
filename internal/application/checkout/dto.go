package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// CheckoutRequest starts the checkout pipeline for a customer's cart
type CheckoutRequest struct {
	AddressID     uuid.UUID        `json:"address_id" binding:"required"`
	PaymentMethod string           `json:"payment_method" binding:"required"`
	Provider      payment.Provider `json:"provider,omitempty"`
	CouponCode    string           `json:"coupon_code,omitempty"`
}

// CheckoutItemResponse describes one settled line
type CheckoutItemResponse struct {
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName     string          `json:"product_name"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// CheckoutSubOrderResponse describes one seller's portion of the order
type CheckoutSubOrderResponse struct {
	SubOrderID uuid.UUID              `json:"sub_order_id"`
	SellerID   uuid.UUID              `json:"seller_id"`
	Subtotal   decimal.Decimal        `json:"subtotal"`
	Status     string                 `json:"status"`
	Items      []CheckoutItemResponse `json:"items"`
}

// CheckoutResponse is the settled order plus the payment handle
type CheckoutResponse struct {
	OrderID        uuid.UUID                  `json:"order_id"`
	OrderNumber    string                     `json:"order_number"`
	TotalAmount    decimal.Decimal            `json:"total_amount"`
	DiscountAmount decimal.Decimal            `json:"discount_amount"`
	ShippingFee    decimal.Decimal            `json:"shipping_fee"`
	TaxAmount      decimal.Decimal            `json:"tax_amount"`
	FinalAmount    decimal.Decimal            `json:"final_amount"`
	PaymentStatus  string                     `json:"payment_status"`
	Status         string                     `json:"status"`
	TransactionID  string                     `json:"transaction_id,omitempty"`
	PaymentURL     string                     `json:"payment_url,omitempty"`
	PaymentExpires *time.Time                 `json:"payment_expires,omitempty"`
	SubOrders      []CheckoutSubOrderResponse `json:"sub_orders"`
}

// ToCheckoutResponse maps an order and its payment handle to the response
func ToCheckoutResponse(o *order.Order, handle *payment.Handle) CheckoutResponse {
	resp := CheckoutResponse{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		ShippingFee:    o.ShippingFee,
		TaxAmount:      o.TaxAmount,
		FinalAmount:    o.FinalAmount,
		PaymentStatus:  o.PaymentStatus.String(),
		Status:         o.Status.String(),
		TransactionID:  o.TransactionID,
		SubOrders:      make([]CheckoutSubOrderResponse, 0, len(o.SubOrders)),
	}
	if handle != nil {
		resp.PaymentURL = handle.PaymentURL
		if !handle.ExpireAt.IsZero() {
			expires := handle.ExpireAt
			resp.PaymentExpires = &expires
		}
	}
	for idx := range o.SubOrders {
		sub := &o.SubOrders[idx]
		subResp := CheckoutSubOrderResponse{
			SubOrderID: sub.ID,
			SellerID:   sub.SellerID,
			Subtotal:   sub.Subtotal,
			Status:     sub.Status.String(),
			Items:      make([]CheckoutItemResponse, 0, len(sub.Items)),
		}
		for _, item := range sub.Items {
			subResp.Items = append(subResp.Items, CheckoutItemResponse{
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
