package persistence

import (
	"context"

	"github.com/shop/backend/internal/application/checkout"
	orderapp "github.com/shop/backend/internal/application/order"
	paymentapp "github.com/shop/backend/internal/application/payment"
	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/promotion"
	"gorm.io/gorm"
)

// gormTransactionalRepositories binds the repositories the settlement
// flows need to a single *gorm.DB transaction handle. The same struct
// satisfies the checkout, order and payment TransactionalRepositories
// contracts, which share one method set.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) OrderRepo() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockRepo() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) CouponRepo() promotion.CouponRepository {
	return NewGormCouponRepository(r.tx)
}

// CheckoutTransactionScope implements checkout.TransactionScope on a
// GORM transaction
type CheckoutTransactionScope struct {
	db *gorm.DB
}

// NewCheckoutTransactionScope creates a new CheckoutTransactionScope
func NewCheckoutTransactionScope(db *gorm.DB) *CheckoutTransactionScope {
	return &CheckoutTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an
// error the transaction is rolled back, otherwise it is committed.
func (s *CheckoutTransactionScope) Execute(ctx context.Context, fn func(repos checkout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// OrderTransactionScope implements order application TransactionScope
// on a GORM transaction
type OrderTransactionScope struct {
	db *gorm.DB
}

// NewOrderTransactionScope creates a new OrderTransactionScope
func NewOrderTransactionScope(db *gorm.DB) *OrderTransactionScope {
	return &OrderTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *OrderTransactionScope) Execute(ctx context.Context, fn func(repos orderapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// PaymentTransactionScope implements payment application
// TransactionScope on a GORM transaction
type PaymentTransactionScope struct {
	db *gorm.DB
}

// NewPaymentTransactionScope creates a new PaymentTransactionScope
func NewPaymentTransactionScope(db *gorm.DB) *PaymentTransactionScope {
	return &PaymentTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *PaymentTransactionScope) Execute(ctx context.Context, fn func(repos paymentapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

var _ checkout.TransactionScope = (*CheckoutTransactionScope)(nil)
var _ orderapp.TransactionScope = (*OrderTransactionScope)(nil)
var _ paymentapp.TransactionScope = (*PaymentTransactionScope)(nil)
