package payment

import (
	"context"
	"testing"
	"time"

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

type paymentFixture struct {
	service    *PaymentService
	orderRepo  *MockOrderRepository
	stockRepo  *MockStockRepository
	couponRepo *MockCouponRepository
	gateway    *MockGateway
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	f := &paymentFixture{
		orderRepo:  new(MockOrderRepository),
		stockRepo:  new(MockStockRepository),
		couponRepo: new(MockCouponRepository),
		gateway:    new(MockGateway),
	}
	scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
	f.service = NewPaymentService(scope, &staticRegistry{gateway: f.gateway}, NewMemoryIdempotencyStore(), zap.NewNop())
	return f
}

func fixturePendingOrder(t *testing.T) *order.Order {
	item, err := order.NewOrderItem(uuid.New(), nil, "Keyboard", 2, decimal.NewFromFloat(40))
	require.NoError(t, err)
	sub, err := order.NewSubOrder(uuid.New(), []*order.OrderItem{item})
	require.NoError(t, err)
	o, err := order.NewOrder("ORD-2026-0200", uuid.New(), uuid.New(), order.PaymentMethodCard,
		[]*order.SubOrder{sub}, decimal.NewFromFloat(5), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, o.AttachTransaction("txn-200"))
	return o
}

func fixtureCallback(status payment.GatewayStatus) *payment.Callback {
	return &payment.Callback{
		Provider:      payment.ProviderSandbox,
		TransactionID: "txn-200",
		OrderNumber:   "ORD-2026-0200",
		Status:        status,
		Amount:        decimal.NewFromFloat(85),
	}
}

func TestPaymentService_ProcessCallback(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"transaction_id":"txn-200"}`)

	t.Run("successful payment settles the order", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPaid), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
			Amount:        o.FinalAmount,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		result, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.False(t, result.AlreadyProcessed)
		assert.Equal(t, order.PaymentStatusPaid.String(), result.PaymentStatus)
		assert.Equal(t, order.StatusProcessing, o.Status)
		f.stockRepo.AssertExpectations(t)
	})

	t.Run("duplicate callbacks settle once", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPaid), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		first, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)
		require.False(t, first.AlreadyProcessed)

		second, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)
		assert.True(t, second.AlreadyProcessed)

		f.stockRepo.AssertNumberOfCalls(t, "Commit", 1)
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.gateway.On("ParseCallback", ctx, payload, "bad").Return(nil, payment.ErrInvalidSignature)

		_, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "bad")
		assert.ErrorIs(t, err, ErrCallbackVerificationFailed)
	})

	t.Run("failed payment cancels order and releases stock", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusFailed), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusFailed,
			FailureReason: "card declined",
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Release", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		result, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)

		assert.Equal(t, order.PaymentStatusFailed.String(), result.PaymentStatus)
		assert.Equal(t, order.StatusCancelled, o.Status)
		assert.Equal(t, "card declined", o.CancelReason)
		f.stockRepo.AssertExpectations(t)
	})

	t.Run("coupon limit overrun does not fail settlement", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		couponID := uuid.New()
		require.NoError(t, o.ApplyCouponDiscount(couponID, decimal.NewFromFloat(8)))
		item := o.SubOrders[0].Items[0]

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPaid), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.couponRepo.On("IncrementUsage", ctx, couponID).Return(shared.ErrConcurrencyConflict)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		result, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPaid.String(), result.PaymentStatus)
	})

	t.Run("pending gateway status leaves order untouched", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPending), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPending,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)

		result, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPending.String(), result.PaymentStatus)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("mismatched captured amount blocks settlement", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)

		f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPaid), nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
			Amount:        o.FinalAmount.Sub(decimal.NewFromFloat(10)),
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)

		_, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "AMOUNT_MISMATCH", domainErr.Code)
		assert.Equal(t, order.PaymentStatusPending, o.PaymentStatus)
		f.stockRepo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

// keyRecordingStore remembers the keys the service claims so tests can
// assert their shape.
type keyRecordingStore struct {
	*MemoryIdempotencyStore
	keys []string
}

func (s *keyRecordingStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.MemoryIdempotencyStore.Claim(ctx, key, ttl)
}

func TestPaymentService_CallbackClaimKey(t *testing.T) {
	// The store owns the key namespace; the service key must stay
	// provider:transaction so redis keys are not double-prefixed.
	ctx := context.Background()
	payload := []byte(`{"transaction_id":"txn-200"}`)

	f := newPaymentFixture(t)
	store := &keyRecordingStore{MemoryIdempotencyStore: NewMemoryIdempotencyStore()}
	scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
	f.service = NewPaymentService(scope, &staticRegistry{gateway: f.gateway}, store, zap.NewNop())

	o := fixturePendingOrder(t)
	item := o.SubOrders[0].Items[0]

	f.gateway.On("ParseCallback", ctx, payload, "sig").Return(fixtureCallback(payment.GatewayStatusPaid), nil)
	f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
		TransactionID: "txn-200",
		Status:        payment.GatewayStatusPaid,
		Amount:        o.FinalAmount,
	}, nil)
	f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
	f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
	f.orderRepo.On("Save", ctx, o).Return(nil)

	_, err := f.service.ProcessCallback(ctx, payment.ProviderSandbox, payload, "sig")
	require.NoError(t, err)

	require.Len(t, store.keys, 1)
	assert.Equal(t, "SANDBOX:txn-200", store.keys[0])
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("settled order is reported without gateway call", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		require.NoError(t, o.MarkPaid("txn-200"))

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		result, err := f.service.VerifyPayment(ctx, o.ID)
		require.NoError(t, err)

		assert.True(t, result.AlreadyProcessed)
		assert.Equal(t, order.PaymentStatusPaid.String(), result.PaymentStatus)
		f.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("pending order is verified against the gateway", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]

		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		result, err := f.service.VerifyPayment(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPaid.String(), result.PaymentStatus)
	})
}

func TestTimeoutService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("lost callback is settled, not cancelled", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]
		scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
		sweeper := NewTimeoutService(f.service, scope, 30*time.Minute, zap.NewNop())

		f.orderRepo.On("FindStalePending", ctx, mock.Anything, sweepBatchSize).Return([]order.Order{*o}, nil)
		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPaid,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Commit", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		stats, err := sweeper.SweepExpired(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.TotalStale)
		assert.Equal(t, 1, stats.Settled)
		assert.Equal(t, 0, stats.Cancelled)
	})

	t.Run("unresolved payment is cancelled with stock released", func(t *testing.T) {
		f := newPaymentFixture(t)
		o := fixturePendingOrder(t)
		item := o.SubOrders[0].Items[0]
		scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
		sweeper := NewTimeoutService(f.service, scope, 30*time.Minute, zap.NewNop())

		f.orderRepo.On("FindStalePending", ctx, mock.Anything, sweepBatchSize).Return([]order.Order{*o}, nil)
		f.orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		f.gateway.On("Verify", ctx, mock.Anything).Return(&payment.VerifyResult{
			TransactionID: "txn-200",
			Status:        payment.GatewayStatusPending,
		}, nil)
		f.orderRepo.On("FindByTransactionID", ctx, "txn-200").Return(o, nil)
		f.stockRepo.On("Release", ctx, item.ProductID, uuid.Nil, int64(2), mock.Anything, o.OrderNumber).Return(nil)
		f.orderRepo.On("Save", ctx, o).Return(nil)

		stats, err := sweeper.SweepExpired(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Cancelled)
		assert.Equal(t, order.StatusCancelled, o.Status)
		f.stockRepo.AssertExpectations(t)
	})

	t.Run("empty sweep is a no-op", func(t *testing.T) {
		f := newPaymentFixture(t)
		scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
		sweeper := NewTimeoutService(f.service, scope, 30*time.Minute, zap.NewNop())

		f.orderRepo.On("FindStalePending", ctx, mock.Anything, sweepBatchSize).Return([]order.Order{}, nil)

		stats, err := sweeper.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalStale)
	})
}
