package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/cart"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	service    *CheckoutService
	cartReader *MockCartReader
	catalog    *MockCatalogReader
	orderRepo  *MockOrderRepository
	stockRepo  *MockStockRepository
	couponRepo *MockCouponRepository
	gateway    *MockGateway
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	f := &checkoutFixture{
		cartReader: new(MockCartReader),
		catalog:    new(MockCatalogReader),
		orderRepo:  new(MockOrderRepository),
		stockRepo:  new(MockStockRepository),
		couponRepo: new(MockCouponRepository),
		gateway:    new(MockGateway),
	}
	scope := NewNoOpTransactionScope(f.orderRepo, f.stockRepo, f.couponRepo)
	f.service = NewCheckoutService(
		f.cartReader,
		f.catalog,
		scope,
		&staticRegistry{gateway: f.gateway},
		zap.NewNop(),
		Config{
			ShippingFlatFee: decimal.NewFromFloat(5),
			TaxRate:         decimal.Zero,
			PaymentExpiry:   30 * time.Minute,
			DefaultProvider: payment.ProviderSandbox,
			CallbackURL:     "https://shop.example.com/api/v1/payments/callback",
			ReturnURL:       "https://shop.example.com/orders",
		},
	)
	return f
}

func fixtureProduct(sellerID uuid.UUID, name string, price float64) *catalog.Product {
	return &catalog.Product{
		BaseEntity: shared.NewBaseEntity(),
		SellerID:   sellerID,
		Name:       name,
		BasePrice:  decimal.NewFromFloat(price),
		IsActive:   true,
	}
}

func fixtureCoupon(t *testing.T, code string, percent float64, minimum float64) *promotion.Coupon {
	coupon, err := promotion.NewCoupon(code, promotion.DiscountTypePercentage,
		decimal.NewFromFloat(percent),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	if minimum > 0 {
		min := decimal.NewFromFloat(minimum)
		coupon.MinimumPurchase = &min
	}
	return coupon
}

func TestCheckoutService_Checkout(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	baseReq := CheckoutRequest{
		AddressID:     uuid.New(),
		PaymentMethod: string(order.PaymentMethodCard),
	}

	t.Run("single seller with percentage coupon", func(t *testing.T) {
		f := newCheckoutFixture(t)
		sellerID := uuid.New()
		product := fixtureProduct(sellerID, "Mechanical Keyboard", 50)

		lines := []cart.CartLine{
			{ProductID: product.ID, Quantity: 2, PriceAtAddition: decimal.NewFromFloat(50)},
		}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)

		coupon := fixtureCoupon(t, "SAVE10", 10, 50)
		f.couponRepo.On("FindByCode", ctx, "SAVE10").Return(coupon, nil)

		f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0001", nil)
		f.stockRepo.On("Reserve", ctx, product.ID, uuid.Nil, int64(2), mock.Anything, "ORD-2026-0001").Return(nil)
		f.orderRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.gateway.On("Initiate", ctx, mock.Anything).Return(&payment.Handle{
			TransactionID: "txn-abc",
			Provider:      payment.ProviderSandbox,
			Status:        payment.GatewayStatusPending,
			PaymentURL:    "https://pay.example.com/txn-abc",
		}, nil)

		req := baseReq
		req.CouponCode = "SAVE10"
		resp, err := f.service.Checkout(ctx, customerID, req)
		require.NoError(t, err)

		assert.Equal(t, "ORD-2026-0001", resp.OrderNumber)
		assert.True(t, decimal.NewFromFloat(100).Equal(resp.TotalAmount))
		assert.True(t, decimal.NewFromFloat(10).Equal(resp.DiscountAmount))
		// 100 - 10 + 5 shipping
		assert.True(t, decimal.NewFromFloat(95).Equal(resp.FinalAmount))
		assert.Equal(t, "txn-abc", resp.TransactionID)
		assert.Equal(t, "https://pay.example.com/txn-abc", resp.PaymentURL)
		require.Len(t, resp.SubOrders, 1)
		assert.Equal(t, sellerID, resp.SubOrders[0].SellerID)

		f.stockRepo.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("multi-seller cart splits into sub-orders", func(t *testing.T) {
		f := newCheckoutFixture(t)
		sellerA := uuid.New()
		sellerB := uuid.New()
		productA := fixtureProduct(sellerA, "Keyboard", 40)
		productB := fixtureProduct(sellerB, "Mouse", 25)

		lines := []cart.CartLine{
			{ProductID: productA.ID, Quantity: 1, PriceAtAddition: decimal.NewFromFloat(40)},
			{ProductID: productB.ID, Quantity: 2, PriceAtAddition: decimal.NewFromFloat(25)},
		}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{productA.ID: productA, productB.ID: productB}, nil)
		f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0002", nil)
		f.stockRepo.On("Reserve", ctx, mock.Anything, uuid.Nil, mock.Anything, mock.Anything, "ORD-2026-0002").Return(nil)
		f.orderRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.gateway.On("Initiate", ctx, mock.Anything).Return(&payment.Handle{
			TransactionID: "txn-def",
			PaymentURL:    "https://pay.example.com/txn-def",
		}, nil)

		resp, err := f.service.Checkout(ctx, customerID, baseReq)
		require.NoError(t, err)

		require.Len(t, resp.SubOrders, 2)
		// groups follow cart line order
		assert.Equal(t, sellerA, resp.SubOrders[0].SellerID)
		assert.Equal(t, sellerB, resp.SubOrders[1].SellerID)
		assert.True(t, decimal.NewFromFloat(40).Equal(resp.SubOrders[0].Subtotal))
		assert.True(t, decimal.NewFromFloat(50).Equal(resp.SubOrders[1].Subtotal))
		assert.True(t, decimal.NewFromFloat(90).Equal(resp.TotalAmount))
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.cartReader.On("ReadCart", ctx, customerID).Return(nil, shared.ErrEmptyCart)

		_, err := f.service.Checkout(ctx, customerID, baseReq)
		assert.ErrorIs(t, err, shared.ErrEmptyCart)
	})

	t.Run("insufficient stock releases earlier reservations", func(t *testing.T) {
		f := newCheckoutFixture(t)
		sellerID := uuid.New()
		productA := fixtureProduct(sellerID, "Keyboard", 40)
		productB := fixtureProduct(sellerID, "Mouse", 25)

		lines := []cart.CartLine{
			{ProductID: productA.ID, Quantity: 1},
			{ProductID: productB.ID, Quantity: 5},
		}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{productA.ID: productA, productB.ID: productB}, nil)
		f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0003", nil)

		stockErr := &shared.InsufficientStockError{
			ProductID: productB.ID.String(),
			Requested: 5,
			Available: 2,
		}
		f.stockRepo.On("Reserve", ctx, productA.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)
		f.stockRepo.On("Reserve", ctx, productB.ID, uuid.Nil, int64(5), mock.Anything, mock.Anything).Return(stockErr)
		f.stockRepo.On("Release", ctx, productA.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.Checkout(ctx, customerID, baseReq)
		require.Error(t, err)

		var insufficientErr *shared.InsufficientStockError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, int64(2), insufficientErr.Available)

		f.stockRepo.AssertExpectations(t)
		f.orderRepo.AssertNotCalled(t, "Save", ctx, mock.Anything)
	})

	t.Run("coupon below minimum is rejected with reason", func(t *testing.T) {
		f := newCheckoutFixture(t)
		product := fixtureProduct(uuid.New(), "Sticker", 3)

		lines := []cart.CartLine{{ProductID: product.ID, Quantity: 1}}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)
		f.couponRepo.On("FindByCode", ctx, "SAVE10").
			Return(fixtureCoupon(t, "SAVE10", 10, 50), nil)

		req := baseReq
		req.CouponCode = "SAVE10"
		_, err := f.service.Checkout(ctx, customerID, req)
		require.Error(t, err)

		var couponErr *shared.CouponInvalidError
		require.ErrorAs(t, err, &couponErr)
		assert.Equal(t, string(promotion.ReasonBelowMinimum), couponErr.Reason)
		f.stockRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inactive product aborts checkout", func(t *testing.T) {
		f := newCheckoutFixture(t)
		product := fixtureProduct(uuid.New(), "Retired Widget", 10)
		product.IsActive = false

		lines := []cart.CartLine{{ProductID: product.ID, Quantity: 1}}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)

		_, err := f.service.Checkout(ctx, customerID, baseReq)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRODUCT_INACTIVE", domainErr.Code)
	})

	t.Run("payment initiation failure releases stock and cancels order", func(t *testing.T) {
		f := newCheckoutFixture(t)
		product := fixtureProduct(uuid.New(), "Keyboard", 40)

		lines := []cart.CartLine{{ProductID: product.ID, Quantity: 1}}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)
		f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0004", nil)
		f.stockRepo.On("Reserve", ctx, product.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("Initiate", ctx, mock.Anything).Return(nil, payment.ErrGatewayUnavailable)
		f.stockRepo.On("Release", ctx, product.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)

		var savedOrders []*order.Order
		f.orderRepo.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
			savedOrders = append(savedOrders, args.Get(1).(*order.Order))
		}).Return(nil)

		_, err := f.service.Checkout(ctx, customerID, baseReq)
		assert.ErrorIs(t, err, shared.ErrPaymentInitiation)

		f.stockRepo.AssertExpectations(t)
		require.NotEmpty(t, savedOrders)
		final := savedOrders[len(savedOrders)-1]
		assert.Equal(t, order.PaymentStatusFailed, final.PaymentStatus)
		assert.Equal(t, order.StatusCancelled, final.Status)
	})

	t.Run("persistence failure surfaces as persistence error", func(t *testing.T) {
		f := newCheckoutFixture(t)
		product := fixtureProduct(uuid.New(), "Keyboard", 40)

		lines := []cart.CartLine{{ProductID: product.ID, Quantity: 1}}
		f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
		f.catalog.On("FindByIDs", ctx, mock.Anything).
			Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)
		f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0005", nil)
		f.stockRepo.On("Reserve", ctx, product.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)
		f.orderRepo.On("Save", ctx, mock.Anything).Return(errors.New("connection reset"))

		_, err := f.service.Checkout(ctx, customerID, baseReq)
		assert.ErrorIs(t, err, shared.ErrPersistence)
		f.gateway.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("unknown payment method is rejected before cart read", func(t *testing.T) {
		f := newCheckoutFixture(t)
		req := baseReq
		req.PaymentMethod = "BARTER"

		_, err := f.service.Checkout(ctx, customerID, req)
		require.Error(t, err)
		f.cartReader.AssertNotCalled(t, "ReadCart", mock.Anything, mock.Anything)
	})
}

func TestCheckoutService_TaxApplied(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	f := newCheckoutFixture(t)
	f.service.cfg.TaxRate = decimal.NewFromFloat(10)

	product := fixtureProduct(uuid.New(), "Keyboard", 100)
	lines := []cart.CartLine{{ProductID: product.ID, Quantity: 1}}
	f.cartReader.On("ReadCart", ctx, customerID).Return(lines, nil)
	f.catalog.On("FindByIDs", ctx, mock.Anything).
		Return(map[uuid.UUID]*catalog.Product{product.ID: product}, nil)
	f.orderRepo.On("NextOrderNumber", ctx).Return("ORD-2026-0006", nil)
	f.stockRepo.On("Reserve", ctx, product.ID, uuid.Nil, int64(1), mock.Anything, mock.Anything).Return(nil)
	f.orderRepo.On("Save", ctx, mock.Anything).Return(nil)
	f.gateway.On("Initiate", ctx, mock.Anything).Return(&payment.Handle{TransactionID: "txn-tax"}, nil)

	resp, err := f.service.Checkout(ctx, customerID, CheckoutRequest{
		AddressID:     uuid.New(),
		PaymentMethod: string(order.PaymentMethodCard),
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromFloat(10).Equal(resp.TaxAmount))
	// 100 + 5 shipping + 10 tax
	assert.True(t, decimal.NewFromFloat(115).Equal(resp.FinalAmount))
}
