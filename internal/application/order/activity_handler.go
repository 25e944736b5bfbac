package order

import (
	"context"
	"fmt"

	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityHandler subscribes to order lifecycle events and writes the order
// activity log. Entries are keyed by event ID so replayed events can be
// correlated downstream.
type ActivityHandler struct {
	logger *zap.Logger
}

// NewActivityHandler creates an activity handler logging through logger.
func NewActivityHandler(logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{logger: logger}
}

// EventTypes returns the lifecycle events this handler records.
func (h *ActivityHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderRefunded,
		order.EventTypeSubOrderShipped,
		order.EventTypeSubOrderDelivered,
	}
}

// Handle appends one activity entry for the event.
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	base := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		h.logger.Info("order created",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("order_number", e.OrderNumber),
				zap.String("customer_id", e.CustomerID.String()),
				zap.String("final_amount", e.FinalAmount.String()),
				zap.Int("sub_orders", e.SubOrders),
			)...)
	case *order.OrderPaidEvent:
		h.logger.Info("order paid",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("order_number", e.OrderNumber),
				zap.String("transaction_id", e.TransactionID),
				zap.String("final_amount", e.FinalAmount.String()),
			)...)
	case *order.OrderCancelledEvent:
		h.logger.Info("order cancelled",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("order_number", e.OrderNumber),
				zap.String("cancel_reason", e.CancelReason),
				zap.Bool("was_paid", e.WasPaid),
				zap.Int("items", len(e.Items)),
			)...)
	case *order.OrderRefundedEvent:
		h.logger.Info("order refunded",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("order_number", e.OrderNumber),
				zap.String("refund_amount", e.RefundAmount.String()),
			)...)
	case *order.SubOrderShippedEvent:
		h.logger.Info("sub-order shipped",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("sub_order_id", e.SubOrderID.String()),
				zap.String("seller_id", e.SellerID.String()),
				zap.String("tracking_number", e.TrackingNumber),
			)...)
	case *order.SubOrderDeliveredEvent:
		h.logger.Info("sub-order delivered",
			append(base,
				zap.String("order_id", e.OrderID.String()),
				zap.String("sub_order_id", e.SubOrderID.String()),
				zap.String("seller_id", e.SellerID.String()),
			)...)
	default:
		h.logger.Error("unexpected event type",
			zap.String("event_type", event.EventType()),
		)
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
	return nil
}

var _ shared.EventHandler = (*ActivityHandler)(nil)
