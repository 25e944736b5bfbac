package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOrderRepository_Integration tests the order repository against a real PostgreSQL database
func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormOrderRepository(testDB.DB)
	ctx := context.Background()

	newTestOrder := func(t *testing.T, customerID uuid.UUID) *order.Order {
		t.Helper()

		item, err := order.NewOrderItem(uuid.New(), nil, "Test Widget", 2, decimal.RequireFromString("19.99"))
		require.NoError(t, err)
		sub, err := order.NewSubOrder(uuid.New(), []*order.OrderItem{item})
		require.NoError(t, err)

		number := fmt.Sprintf("TEST-%s", uuid.New().String()[:8])
		o, err := order.NewOrder(number, customerID, uuid.New(), order.PaymentMethodCard, []*order.SubOrder{sub},
			decimal.RequireFromString("5.00"), decimal.RequireFromString("4.00"))
		require.NoError(t, err)
		return o
	}

	t.Run("Save and FindByID", func(t *testing.T) {
		o := newTestOrder(t, uuid.New())

		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.OrderNumber, found.OrderNumber)
		assert.Equal(t, o.CustomerID, found.CustomerID)
		assert.Equal(t, order.StatusPending, found.Status)
		assert.Equal(t, order.PaymentStatusPending, found.PaymentStatus)
		assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("39.98")))
		assert.True(t, found.FinalAmount.Equal(decimal.RequireFromString("48.98")))
		require.Len(t, found.SubOrders, 1)
		require.Len(t, found.SubOrders[0].Items, 1)
		assert.Equal(t, int64(2), found.SubOrders[0].Items[0].Quantity)
	})

	t.Run("FindByOrderNumber", func(t *testing.T) {
		o := newTestOrder(t, uuid.New())
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByOrderNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)

		_, err = repo.FindByOrderNumber(ctx, "TEST-missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("NextOrderNumber is sequential", func(t *testing.T) {
		first, err := repo.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.Contains(t, first, fmt.Sprintf("ORD-%d-", time.Now().Year()))

		o := newTestOrder(t, uuid.New())
		o.OrderNumber = first
		require.NoError(t, repo.Save(ctx, o))

		second, err := repo.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Greater(t, second, first)
	})

	t.Run("MarkPaid and FindByTransactionID", func(t *testing.T) {
		o := newTestOrder(t, uuid.New())
		require.NoError(t, repo.Save(ctx, o))

		transactionID := fmt.Sprintf("txn_%s", uuid.New().String()[:8])
		require.NoError(t, o.MarkPaid(transactionID))
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByTransactionID(ctx, transactionID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
		assert.Equal(t, order.PaymentStatusPaid, found.PaymentStatus)
		assert.NotNil(t, found.PaidAt)
	})

	t.Run("FindByCustomer", func(t *testing.T) {
		customerID := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Save(ctx, newTestOrder(t, customerID)))
		}
		require.NoError(t, repo.Save(ctx, newTestOrder(t, uuid.New())))

		orders, err := repo.FindByCustomer(ctx, customerID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, orders, 3)
		for _, o := range orders {
			assert.Equal(t, customerID, o.CustomerID)
		}
	})

	t.Run("FindStalePending", func(t *testing.T) {
		stale := newTestOrder(t, uuid.New())
		require.NoError(t, repo.Save(ctx, stale))

		// Backdate so the order falls behind the cutoff
		err := testDB.DB.Exec(`UPDATE orders SET created_at = NOW() - INTERVAL '2 hours' WHERE id = ?`, stale.ID).Error
		require.NoError(t, err)

		paid := newTestOrder(t, uuid.New())
		require.NoError(t, paid.MarkPaid("txn_settled"))
		require.NoError(t, repo.Save(ctx, paid))
		err = testDB.DB.Exec(`UPDATE orders SET created_at = NOW() - INTERVAL '2 hours' WHERE id = ?`, paid.ID).Error
		require.NoError(t, err)

		found, err := repo.FindStalePending(ctx, time.Now().Add(-time.Hour), 50)
		require.NoError(t, err)

		ids := make([]uuid.UUID, 0, len(found))
		for _, o := range found {
			ids = append(ids, o.ID)
		}
		assert.Contains(t, ids, stale.ID)
		assert.NotContains(t, ids, paid.ID)
	})

	t.Run("Optimistic locking rejects stale writes", func(t *testing.T) {
		o := newTestOrder(t, uuid.New())
		require.NoError(t, repo.Save(ctx, o))

		copy1, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		copy2, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		require.NoError(t, copy1.MarkPaid("txn_winner"))
		require.NoError(t, repo.Save(ctx, copy1))

		require.NoError(t, copy2.Cancel("changed my mind"))
		err = repo.Save(ctx, copy2)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}
