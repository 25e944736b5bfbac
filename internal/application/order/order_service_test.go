package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderFixture struct {
	service    *OrderService
	orderRepo  *MockOrderRepository
	stockRepo  *MockStockRepository
	couponRepo *MockCouponRepository
	gateway    *MockGateway
}

func newOrderFixture(t *testing.T) *orderFixture {
	f := &orderFixture{
		orderRepo:  new(MockOrderRepository),
		stockRepo:  new(MockStockRepository),
		couponRepo: new(MockCouponRepository),
		gateway:    new(MockGateway),
	}
	scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
	f.service = NewOrderService(scope, &staticRegistry{gateway: f.gateway}, zap.NewNop())
	return f
}

func fixtureOrder(t *testing.T, customerID uuid.UUID) *order.Order {
	item, err := order.NewOrderItem(uuid.New(), nil, "Keyboard", 2, decimal.NewFromFloat(40))
	require.NoError(t, err)
	sub, err := order.NewSubOrder(uuid.New(), []*order.OrderItem{item})
	require.NoError(t, err)
	o, err := order.NewOrder("ORD-2026-0100", customerID, uuid.New(), order.PaymentMethodCard,
		[]*order.SubOrder{sub}, decimal.NewFromFloat(5), decimal.Zero)
	require.NoError(t, err)
	return o
}

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("returns own order", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		resp, err := f.service.GetByID(ctx, customerID, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.OrderNumber, resp.OrderNumber)
		require.Len(t, resp.SubOrders, 1)
		assert.Len(t, resp.SubOrders[0].Items, 1)
	})

	t.Run("foreign order reads as not found", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, uuid.New())
		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		_, err := f.service.GetByID(ctx, customerID, o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("unpaid order releases reservations", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		item := o.SubOrders[0].Items[0]

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.stockRepo.On("Release", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		resp, err := f.service.Cancel(ctx, customerID, o.ID, "changed my mind")
		require.NoError(t, err)

		assert.Equal(t, order.StatusCancelled.String(), resp.Status)
		f.stockRepo.AssertExpectations(t)
		f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
		f.couponRepo.AssertNotCalled(t, "DecrementUsage", mock.Anything, mock.Anything)
	})

	t.Run("paid order restocks, rolls back coupon and refunds", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		couponID := uuid.New()
		require.NoError(t, o.ApplyCouponDiscount(couponID, decimal.NewFromFloat(8)))
		require.NoError(t, o.MarkPaid("txn-77"))
		item := o.SubOrders[0].Items[0]

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.stockRepo.On("Restock", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.couponRepo.On("DecrementUsage", ctx, couponID).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)
		f.gateway.On("Refund", ctx, mock.MatchedBy(func(req *payment.RefundRequest) bool {
			return req.TransactionID == "txn-77" && req.Amount.Equal(o.FinalAmount)
		})).Return(&payment.RefundResult{RefundID: "ref-1", Status: payment.GatewayStatusRefunded}, nil)

		resp, err := f.service.Cancel(ctx, customerID, o.ID, "damaged on arrival")
		require.NoError(t, err)

		assert.Equal(t, order.PaymentStatusRefunded.String(), resp.PaymentStatus)
		f.stockRepo.AssertExpectations(t)
		f.couponRepo.AssertExpectations(t)
		f.gateway.AssertExpectations(t)
	})

	t.Run("cancelling a cancelled order is a no-op", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		require.NoError(t, o.Cancel("first"))

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		resp, err := f.service.Cancel(ctx, customerID, o.ID, "second")
		require.NoError(t, err)
		assert.Equal(t, "first", resp.CancelReason)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		require.NoError(t, o.MarkPaid("txn-1"))
		require.NoError(t, o.ShipSubOrder(o.SubOrders[0].ID, "TRK-1"))

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		_, err := f.service.Cancel(ctx, customerID, o.ID, "too late")
		assert.Error(t, err)
	})
}

func TestOrderService_Fulfillment(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("ship then deliver a sub-order", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		require.NoError(t, o.MarkPaid("txn-1"))
		subID := o.SubOrders[0].ID

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		resp, err := f.service.ShipSubOrder(ctx, o.ID, subID, "TRK-500")
		require.NoError(t, err)
		assert.Equal(t, order.StatusShipped.String(), resp.SubOrders[0].Status)
		assert.Equal(t, "TRK-500", resp.SubOrders[0].TrackingNumber)

		resp, err = f.service.DeliverSubOrder(ctx, o.ID, subID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered.String(), resp.SubOrders[0].Status)
		assert.Equal(t, order.StatusDelivered.String(), resp.Status)
	})

	t.Run("unknown sub-order is rejected", func(t *testing.T) {
		f := newOrderFixture(t)
		o := fixtureOrder(t, customerID)
		require.NoError(t, o.MarkPaid("txn-1"))

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		_, err := f.service.ShipSubOrder(ctx, o.ID, uuid.New(), "TRK-1")
		assert.Error(t, err)
	})
}
