package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderService handles order lifecycle operations after checkout:
// queries, cancellation with stock and coupon compensation, and
// per-seller fulfillment updates.
type OrderService struct {
	txScope  TransactionScope
	gateways payment.Registry
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(txScope TransactionScope, gateways payment.Registry, logger *zap.Logger) *OrderService {
	return &OrderService{
		txScope:  txScope,
		gateways: gateways,
		logger:   logger,
	}
}

// GetByID retrieves an order. When customerID is not uuid.Nil the order
// must belong to that customer; other customers' orders read as not
// found rather than forbidden.
func (s *OrderService) GetByID(ctx context.Context, customerID, orderID uuid.UUID) (*OrderResponse, error) {
	var o *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		o = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if customerID != uuid.Nil && o.CustomerID != customerID {
		return nil, shared.ErrNotFound
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetByOrderNumber retrieves an order by its human-readable number
func (s *OrderService) GetByOrderNumber(ctx context.Context, customerID uuid.UUID, orderNumber string) (*OrderResponse, error) {
	var o *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByOrderNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		o = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if customerID != uuid.Nil && o.CustomerID != customerID {
		return nil, shared.ErrNotFound
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListByCustomer lists a customer's orders, newest first
func (s *OrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter OrderListFilter) ([]OrderListItemResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	var orders []order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByCustomer(ctx, customerID, domainFilter)
		if err != nil {
			return err
		}
		orders = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]OrderListItemResponse, 0, len(orders))
	for idx := range orders {
		items = append(items, ToOrderListItemResponse(&orders[idx]))
	}
	return items, nil
}

// Cancel cancels an order. Unpaid orders get their reservations
// released; paid orders get committed stock returned, the coupon usage
// rolled back and the payment refunded through the gateway.
func (s *OrderService) Cancel(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*OrderResponse, error) {
	var o *order.Order
	wasPaid := false

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		o = found
		if customerID != uuid.Nil && o.CustomerID != customerID {
			return shared.ErrNotFound
		}
		if o.IsCancelled() {
			return nil
		}
		wasPaid = o.IsPaid()

		if err := o.Cancel(reason); err != nil {
			return err
		}

		if err := s.returnStock(ctx, repos, o, wasPaid); err != nil {
			return err
		}

		// a paid order committed the coupon usage at settlement
		if wasPaid && o.CouponID != nil {
			if err := repos.CouponRepo().DecrementUsage(ctx, *o.CouponID); err != nil {
				return err
			}
		}

		return repos.OrderRepo().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	if wasPaid {
		if err := s.refund(ctx, o); err != nil {
			// order stays cancelled; the refund is retried out of band
			s.logger.Error("Refund failed after cancellation",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
			return nil, err
		}
	}

	s.logger.Info("Order cancelled",
		zap.String("order_number", o.OrderNumber),
		zap.Bool("was_paid", wasPaid),
		zap.String("reason", reason),
	)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// returnStock undoes the stock effects of an order: reserved units are
// released, committed units are restocked.
func (s *OrderService) returnStock(ctx context.Context, repos TransactionalRepositories, o *order.Order, wasPaid bool) error {
	for idx := range o.SubOrders {
		for _, item := range o.SubOrders[idx].Items {
			variantID := uuid.Nil
			if item.VariantID != nil {
				variantID = *item.VariantID
			}
			var err error
			if wasPaid {
				err = repos.StockRepo().Restock(ctx, item.ProductID, variantID, item.Quantity, &o.ID, o.OrderNumber)
			} else {
				err = repos.StockRepo().Release(ctx, item.ProductID, variantID, item.Quantity, &o.ID, o.OrderNumber)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// refund returns the payment through the gateway and records it
func (s *OrderService) refund(ctx context.Context, o *order.Order) error {
	provider := providerForMethod(o.PaymentMethod)
	gateway, err := s.gateways.Gateway(provider)
	if err != nil {
		return err
	}

	if _, err := gateway.Refund(ctx, &payment.RefundRequest{
		TransactionID: o.TransactionID,
		Amount:        o.FinalAmount,
		Reason:        o.CancelReason,
		Provider:      provider,
	}); err != nil {
		return err
	}

	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := o.Refund(); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, o)
	})
}

// ShipSubOrder marks a seller's sub-order shipped
func (s *OrderService) ShipSubOrder(ctx context.Context, orderID, subOrderID uuid.UUID, trackingNumber string) (*OrderResponse, error) {
	var o *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		o = found
		if err := o.ShipSubOrder(subOrderID, trackingNumber); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// DeliverSubOrder marks a seller's sub-order delivered
func (s *OrderService) DeliverSubOrder(ctx context.Context, orderID, subOrderID uuid.UUID) (*OrderResponse, error) {
	var o *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		o = found
		if err := o.DeliverSubOrder(subOrderID); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// providerForMethod picks the gateway provider a payment method settles
// through.
func providerForMethod(method order.PaymentMethod) payment.Provider {
	switch method {
	case order.PaymentMethodCard:
		return payment.ProviderStripe
	case order.PaymentMethodWallet:
		return payment.ProviderPaypal
	default:
		return payment.ProviderSandbox
	}
}
