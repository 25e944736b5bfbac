package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

// MockLedgerRepository is a mock implementation of inventory.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindByUnit(ctx context.Context, productID, variantID uuid.UUID, filter shared.Filter) ([]inventory.StockLedgerEntry, error) {
	args := m.Called(ctx, productID, variantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockLedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.StockLedgerEntry, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockLedgerEntry), args.Error(1)
}

func TestStockService_GetStock(t *testing.T) {
	ctx := context.Background()
	stockRepo := new(MockStockRepository)
	ledgerRepo := new(MockLedgerRepository)
	service := NewStockService(stockRepo, ledgerRepo, zap.NewNop())

	item, err := inventory.NewStockItem(uuid.New(), uuid.Nil, uuid.New(), 10)
	require.NoError(t, err)
	require.NoError(t, item.Reserve(3))

	stockRepo.On("FindByUnit", ctx, item.ProductID, uuid.Nil).Return(item, nil)

	resp, err := service.GetStock(ctx, item.ProductID, uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, int64(7), resp.Available)
	assert.Equal(t, int64(3), resp.Reserved)
	assert.Equal(t, int64(10), resp.Total)
}

func TestStockService_ListLedgerByOrder(t *testing.T) {
	ctx := context.Background()
	stockRepo := new(MockStockRepository)
	ledgerRepo := new(MockLedgerRepository)
	service := NewStockService(stockRepo, ledgerRepo, zap.NewNop())

	item, err := inventory.NewStockItem(uuid.New(), uuid.Nil, uuid.New(), 10)
	require.NoError(t, err)
	require.NoError(t, item.Reserve(2))
	orderID := uuid.New()
	entry := inventory.NewLedgerEntry(item, inventory.LedgerEntryReserve, 2, &orderID, "ORD-1")

	ledgerRepo.On("FindByOrder", ctx, orderID).Return([]inventory.StockLedgerEntry{*entry}, nil)

	entries, err := service.ListLedgerByOrder(ctx, orderID)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, string(inventory.LedgerEntryReserve), entries[0].EntryType)
	assert.Equal(t, int64(10), entries[0].QuantityBefore)
	assert.Equal(t, int64(8), entries[0].QuantityAfter)
}

func TestStockService_Restock(t *testing.T) {
	ctx := context.Background()
	stockRepo := new(MockStockRepository)
	ledgerRepo := new(MockLedgerRepository)
	service := NewStockService(stockRepo, ledgerRepo, zap.NewNop())

	item, err := inventory.NewStockItem(uuid.New(), uuid.Nil, uuid.New(), 15)
	require.NoError(t, err)

	stockRepo.On("Restock", ctx, item.ProductID, uuid.Nil, int64(5), (*uuid.UUID)(nil), "purchase-42").Return(nil)
	stockRepo.On("FindByUnit", ctx, item.ProductID, uuid.Nil).Return(item, nil)

	resp, err := service.Restock(ctx, item.ProductID, uuid.Nil, 5, "purchase-42")
	require.NoError(t, err)
	assert.Equal(t, int64(15), resp.Available)

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := service.Restock(ctx, item.ProductID, uuid.Nil, 0, "x")
		assert.Error(t, err)
	})
}
