package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type unknownEvent struct {
	shared.BaseDomainEvent
}

func TestActivityHandler_EventTypes(t *testing.T) {
	h := NewActivityHandler(zap.NewNop())

	assert.ElementsMatch(t, []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderRefunded,
		order.EventTypeSubOrderShipped,
		order.EventTypeSubOrderDelivered,
	}, h.EventTypes())
}

func TestActivityHandler_Handle(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	newHandler := func() (*ActivityHandler, *observer.ObservedLogs) {
		core, recorded := observer.New(zap.InfoLevel)
		return NewActivityHandler(zap.New(core)), recorded
	}

	t.Run("order paid entry carries the transaction", func(t *testing.T) {
		h, recorded := newHandler()
		evt := &order.OrderPaidEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderPaid, order.AggregateTypeOrder, orderID),
			OrderID:         orderID,
			OrderNumber:     "ORD-2026-0300",
			CustomerID:      uuid.New(),
			TransactionID:   "txn-300",
			FinalAmount:     decimal.NewFromFloat(120),
		}

		require.NoError(t, h.Handle(ctx, evt))

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "order paid", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, orderID.String(), fields["order_id"])
		assert.Equal(t, "ORD-2026-0300", fields["order_number"])
		assert.Equal(t, "txn-300", fields["transaction_id"])
		assert.Equal(t, evt.EventID().String(), fields["event_id"])
	})

	t.Run("cancellation records the reason and paid state", func(t *testing.T) {
		h, recorded := newHandler()
		evt := &order.OrderCancelledEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderCancelled, order.AggregateTypeOrder, orderID),
			OrderID:         orderID,
			OrderNumber:     "ORD-2026-0300",
			CustomerID:      uuid.New(),
			CancelReason:    "payment timeout",
			WasPaid:         false,
		}

		require.NoError(t, h.Handle(ctx, evt))

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "order cancelled", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, "payment timeout", fields["cancel_reason"])
		assert.Equal(t, false, fields["was_paid"])
	})

	t.Run("shipment entry names the seller and tracking number", func(t *testing.T) {
		h, recorded := newHandler()
		sellerID := uuid.New()
		evt := &order.SubOrderShippedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeSubOrderShipped, order.AggregateTypeOrder, orderID),
			OrderID:         orderID,
			SubOrderID:      uuid.New(),
			SellerID:        sellerID,
			TrackingNumber:  "TRK-555",
		}

		require.NoError(t, h.Handle(ctx, evt))

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "sub-order shipped", entries[0].Message)
		assert.Equal(t, sellerID.String(), entries[0].ContextMap()["seller_id"])
		assert.Equal(t, "TRK-555", entries[0].ContextMap()["tracking_number"])
	})

	t.Run("unexpected event type is an error", func(t *testing.T) {
		h, _ := newHandler()
		evt := &unknownEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent("SomethingElse", order.AggregateTypeOrder, orderID),
		}

		assert.Error(t, h.Handle(ctx, evt))
	})
}
