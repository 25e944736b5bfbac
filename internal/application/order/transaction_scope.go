package order

import (
	"context"

	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/promotion"
)

// TransactionScope provides transactional access to the repositories
// order management writes. Cancellation touches the order, its stock
// reservations and coupon usage in one transaction.
type TransactionScope interface {
	// Execute runs fn within a database transaction
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to the current
// transaction.
type TransactionalRepositories interface {
	// OrderRepo returns the order repository scoped to the transaction
	OrderRepo() order.Repository
	// StockRepo returns the stock repository scoped to the transaction
	StockRepo() inventory.StockRepository
	// CouponRepo returns the coupon repository scoped to the transaction
	CouponRepo() promotion.CouponRepository
}

// NoOpTransactionScope runs the function without a real transaction
type NoOpTransactionScope struct {
	orderRepo  order.Repository
	stockRepo  inventory.StockRepository
	couponRepo promotion.CouponRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories.
func NewNoOpTransactionScope(
	orderRepo order.Repository,
	stockRepo inventory.StockRepository,
	couponRepo promotion.CouponRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:  orderRepo,
		stockRepo:  stockRepo,
		couponRepo: couponRepo,
	}
}

// Execute runs the function without transaction boundaries
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() order.Repository {
	return s.orderRepo
}

// StockRepo returns the stock repository
func (s *NoOpTransactionScope) StockRepo() inventory.StockRepository {
	return s.stockRepo
}

// CouponRepo returns the coupon repository
func (s *NoOpTransactionScope) CouponRepo() promotion.CouponRepository {
	return s.couponRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
