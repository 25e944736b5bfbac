package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/cart"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockCartReader is a mock implementation of cart.Reader
type MockCartReader struct {
	mock.Mock
}

func (m *MockCartReader) ReadCart(ctx context.Context, customerID uuid.UUID) ([]cart.CartLine, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.CartLine), args.Error(1)
}

// MockCatalogReader is a mock implementation of catalog.Reader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) FindByID(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogReader) FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) NextOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockStockRepository is a mock implementation of inventory.StockRepository
type MockStockRepository struct {
	mock.Mock
}

func (m *MockStockRepository) FindByUnit(ctx context.Context, productID, variantID uuid.UUID) (*inventory.StockItem, error) {
	args := m.Called(ctx, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockItem), args.Error(1)
}

func (m *MockStockRepository) FindByUnits(ctx context.Context, keys []inventory.UnitKey) ([]inventory.StockItem, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockItem), args.Error(1)
}

func (m *MockStockRepository) Reserve(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	args := m.Called(ctx, productID, variantID, quantity, orderID, reference)
	return args.Error(0)
}

func (m *MockStockRepository) Release(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	args := m.Called(ctx, productID, variantID, quantity, orderID, reference)
	return args.Error(0)
}

func (m *MockStockRepository) Commit(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	args := m.Called(ctx, productID, variantID, quantity, orderID, reference)
	return args.Error(0)
}

func (m *MockStockRepository) Restock(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	args := m.Called(ctx, productID, variantID, quantity, orderID, reference)
	return args.Error(0)
}

func (m *MockStockRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// MockCouponRepository is a mock implementation of promotion.CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Coupon), args.Error(1)
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Save(ctx context.Context, coupon *promotion.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *MockCouponRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCouponRepository) DecrementUsage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
	provider payment.Provider
}

func (m *MockGateway) Provider() payment.Provider {
	if m.provider == "" {
		return payment.ProviderSandbox
	}
	return m.provider
}

func (m *MockGateway) Initiate(ctx context.Context, req *payment.InitiateRequest) (*payment.Handle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Handle), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, req *payment.VerifyRequest) (*payment.VerifyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerifyResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

func (m *MockGateway) ParseCallback(ctx context.Context, payload []byte, signature string) (*payment.Callback, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Callback), args.Error(1)
}

// staticRegistry resolves every provider to the same gateway
type staticRegistry struct {
	gateway payment.Gateway
}

func (r *staticRegistry) Gateway(provider payment.Provider) (payment.Gateway, error) {
	if r.gateway == nil {
		return nil, payment.ErrGatewayNotConfigured
	}
	return r.gateway, nil
}

func (r *staticRegistry) Providers() []payment.Provider {
	return []payment.Provider{payment.ProviderSandbox}
}
