package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

var (
	// ErrCallbackVerificationFailed is returned when the signature check fails
	ErrCallbackVerificationFailed = errors.New("payment callback: signature verification failed")
	// ErrCallbackOrderNotFound is returned when no order matches the callback
	ErrCallbackOrderNotFound = errors.New("payment callback: order not found")
)

// claimTTL bounds how long a processed callback key stays deduplicated
const claimTTL = 24 * time.Hour

// CallbackResult reports the outcome of processing a gateway callback
type CallbackResult struct {
	Success          bool
	AlreadyProcessed bool
	OrderNumber      string
	PaymentStatus    string
}

// PaymentService settles payments: it verifies gateway callbacks,
// re-queries the gateway for the authoritative result and applies the
// outcome to the order, its stock reservations and coupon usage.
// Callbacks are never trusted without re-verification.
type PaymentService struct {
	txScope        TransactionScope
	gateways       payment.Registry
	idempotency    IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txScope TransactionScope,
	gateways payment.Registry,
	idempotency IdempotencyStore,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		txScope:     txScope,
		gateways:    gateways,
		idempotency: idempotency,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ProcessCallback handles a raw payment notification pushed by a gateway
func (s *PaymentService) ProcessCallback(ctx context.Context, provider payment.Provider, payload []byte, signature string) (*CallbackResult, error) {
	gateway, err := s.gateways.Gateway(provider)
	if err != nil {
		return nil, err
	}

	callback, err := gateway.ParseCallback(ctx, payload, signature)
	if err != nil {
		s.logger.Warn("Callback verification failed",
			zap.String("provider", provider.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrCallbackVerificationFailed, err)
	}

	s.logger.Info("Payment callback received",
		zap.String("provider", provider.String()),
		zap.String("transaction_id", callback.TransactionID),
		zap.String("order_number", callback.OrderNumber),
		zap.String("status", callback.Status.String()),
	)

	// The store namespaces keys, so this stays provider:transaction only.
	key := fmt.Sprintf("%s:%s", provider, callback.TransactionID)
	claimed, err := s.idempotency.Claim(ctx, key, claimTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.logger.Info("Callback already processed",
			zap.String("transaction_id", callback.TransactionID),
		)
		return &CallbackResult{Success: true, AlreadyProcessed: true, OrderNumber: callback.OrderNumber}, nil
	}

	result, err := s.settleFromGateway(ctx, gateway, callback.TransactionID, callback.OrderNumber)
	if err != nil {
		// release the claim so the gateway's retry can settle
		if forgetErr := s.idempotency.Forget(ctx, key); forgetErr != nil {
			s.logger.Warn("Failed to release callback claim",
				zap.String("transaction_id", callback.TransactionID),
				zap.Error(forgetErr),
			)
		}
		return nil, err
	}
	return result, nil
}

// VerifyPayment pulls the authoritative result for an order's payment.
// Used by the return-URL flow and safe to repeat: a settled order is
// left untouched.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID uuid.UUID) (*CallbackResult, error) {
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

	if !o.IsAwaitingPayment() {
		return &CallbackResult{
			Success:          true,
			AlreadyProcessed: true,
			OrderNumber:      o.OrderNumber,
			PaymentStatus:    o.PaymentStatus.String(),
		}, nil
	}

	provider := providerForMethod(o.PaymentMethod)
	gateway, err := s.gateways.Gateway(provider)
	if err != nil {
		return nil, err
	}

	return s.settleFromGateway(ctx, gateway, o.TransactionID, o.OrderNumber)
}

// settleFromGateway fetches the authoritative result and applies it
func (s *PaymentService) settleFromGateway(ctx context.Context, gateway payment.Gateway, transactionID, orderNumber string) (*CallbackResult, error) {
	result, err := gateway.Verify(ctx, &payment.VerifyRequest{
		TransactionID: transactionID,
		OrderNumber:   orderNumber,
		Provider:      gateway.Provider(),
	})
	if err != nil {
		return nil, err
	}

	var o *order.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := s.findOrder(ctx, repos, transactionID, orderNumber)
		if err != nil {
			return err
		}
		o = found

		switch {
		case result.Status.IsSuccess():
			if err := s.checkSettledAmount(o, result); err != nil {
				return err
			}
			return s.applyPaid(ctx, repos, o, result.TransactionID)
		case result.Status.IsFinal():
			return s.applyFailed(ctx, repos, o, result)
		default:
			// still pending at the gateway, nothing to settle
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	return &CallbackResult{
		Success:       true,
		OrderNumber:   o.OrderNumber,
		PaymentStatus: o.PaymentStatus.String(),
	}, nil
}

// checkSettledAmount refuses to settle when the captured amount does
// not match what the order charges. Gateways that omit the amount in
// their verify response skip the check.
func (s *PaymentService) checkSettledAmount(o *order.Order, result *payment.VerifyResult) error {
	if result.Amount.IsZero() {
		return nil
	}

	currency := valueobject.Currency(result.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	captured, err := valueobject.NewMoney(result.Amount, currency)
	if err != nil {
		return err
	}

	due := valueobject.NewMoneyUSD(o.FinalAmount)
	if !captured.Equals(due) {
		s.logger.Error("Gateway settled a different amount than the order charges",
			zap.String("order_number", o.OrderNumber),
			zap.String("captured", captured.String()),
			zap.String("due", due.String()),
		)
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Gateway captured %s but order charges %s", captured, due))
	}
	return nil
}

func (s *PaymentService) findOrder(ctx context.Context, repos TransactionalRepositories, transactionID, orderNumber string) (*order.Order, error) {
	if transactionID != "" {
		o, err := repos.OrderRepo().FindByTransactionID(ctx, transactionID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if orderNumber != "" {
		o, err := repos.OrderRepo().FindByOrderNumber(ctx, orderNumber)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrCallbackOrderNotFound
}

// applyPaid settles a successful payment: the order moves to
// processing, reserved stock is burned and the coupon usage committed.
// Repeats are no-ops thanks to the order's idempotent MarkPaid.
func (s *PaymentService) applyPaid(ctx context.Context, repos TransactionalRepositories, o *order.Order, transactionID string) error {
	if o.IsPaid() {
		return nil
	}

	if err := o.MarkPaid(transactionID); err != nil {
		return err
	}

	for idx := range o.SubOrders {
		for _, item := range o.SubOrders[idx].Items {
			variantID := uuid.Nil
			if item.VariantID != nil {
				variantID = *item.VariantID
			}
			if err := repos.StockRepo().Commit(ctx, item.ProductID, variantID, item.Quantity, &o.ID, o.OrderNumber); err != nil {
				return err
			}
		}
	}

	if o.CouponID != nil {
		if err := repos.CouponRepo().IncrementUsage(ctx, *o.CouponID); err != nil {
			// the customer already paid; keep the settlement and flag
			// the overrun instead of failing the order
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				s.logger.Warn("Coupon usage limit overrun at settlement",
					zap.String("order_number", o.OrderNumber),
					zap.String("coupon_id", o.CouponID.String()),
				)
			} else {
				return err
			}
		}
	}

	if err := repos.OrderRepo().Save(ctx, o); err != nil {
		return err
	}

	s.logger.Info("Payment settled",
		zap.String("order_number", o.OrderNumber),
		zap.String("transaction_id", transactionID),
	)
	return nil
}

// applyFailed records a definitive failure: the order is cancelled and
// every reservation released. Coupon usage was never committed.
func (s *PaymentService) applyFailed(ctx context.Context, repos TransactionalRepositories, o *order.Order, result *payment.VerifyResult) error {
	if !o.IsAwaitingPayment() {
		return nil
	}

	reason := result.FailureReason
	if reason == "" {
		reason = fmt.Sprintf("payment %s", result.Status)
	}
	if err := o.MarkPaymentFailed(reason); err != nil {
		return err
	}

	for idx := range o.SubOrders {
		for _, item := range o.SubOrders[idx].Items {
			variantID := uuid.Nil
			if item.VariantID != nil {
				variantID = *item.VariantID
			}
			if err := repos.StockRepo().Release(ctx, item.ProductID, variantID, item.Quantity, &o.ID, o.OrderNumber); err != nil {
				return err
			}
		}
	}

	if err := repos.OrderRepo().Save(ctx, o); err != nil {
		return err
	}

	s.logger.Info("Payment failed, order cancelled",
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", reason),
	)
	return nil
}

func (s *PaymentService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil || o == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payment events",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		return
	}
	o.ClearDomainEvents()
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
