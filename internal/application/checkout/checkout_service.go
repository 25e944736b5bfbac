package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/cart"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/pricing"
	"github.com/shop/backend/internal/domain/promotion"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config carries the checkout pipeline settings
type Config struct {
	// ShippingFlatFee is charged once per order
	ShippingFlatFee decimal.Decimal
	// TaxRate is a percentage applied to the discounted goods total
	TaxRate decimal.Decimal
	// PaymentExpiry bounds how long a payment session stays open
	PaymentExpiry time.Duration
	// DefaultProvider is used when the request does not name one
	DefaultProvider payment.Provider
	// CallbackURL receives gateway notifications
	CallbackURL string
	// ReturnURL is where the payer lands after paying
	ReturnURL string
}

// CheckoutService runs the checkout pipeline: read cart, partition by
// seller, price, reserve stock, assemble the order and open a payment
// session. Stock reservation and order persistence happen in one
// transaction; the gateway call stays outside it.
type CheckoutService struct {
	cartReader     cart.Reader
	catalogReader  catalog.Reader
	txScope        TransactionScope
	gateways       payment.Registry
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	cfg            Config
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	cartReader cart.Reader,
	catalogReader catalog.Reader,
	txScope TransactionScope,
	gateways payment.Registry,
	logger *zap.Logger,
	cfg Config,
) *CheckoutService {
	return &CheckoutService{
		cartReader:    cartReader,
		catalogReader: catalogReader,
		txScope:       txScope,
		gateways:      gateways,
		logger:        logger,
		cfg:           cfg,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

type reservedLine struct {
	productID uuid.UUID
	variantID uuid.UUID
	quantity  int64
}

// Checkout settles the customer's cart into an order awaiting payment
func (s *CheckoutService) Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	method := order.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}

	lines, err := s.cartReader.ReadCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shared.ErrEmptyCart
	}

	products, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	groups := cart.Partition(lines, func(productID uuid.UUID) uuid.UUID {
		return products[productID].SellerID
	})

	subOrders, subtotal, err := s.buildSubOrders(groups, products)
	if err != nil {
		return nil, err
	}

	// Coupon evaluation happens before the transaction; usage is
	// committed only when payment settles.
	var coupon *promotion.Coupon
	discount := decimal.Zero
	if req.CouponCode != "" {
		coupon, discount, err = s.evaluateCoupon(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(s.cfg.TaxRate).Div(decimal.NewFromInt(100)).Round(2)

	var o *order.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		orderNumber, err := repos.OrderRepo().NextOrderNumber(ctx)
		if err != nil {
			return err
		}

		o, err = order.NewOrder(orderNumber, customerID, req.AddressID, method, subOrders, s.cfg.ShippingFlatFee, tax)
		if err != nil {
			return err
		}
		if coupon != nil {
			if err := o.ApplyCouponDiscount(coupon.ID, discount); err != nil {
				return err
			}
		}

		if err := s.reserveStock(ctx, repos, o, lines); err != nil {
			return err
		}

		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// Lost the order number race, the client retries checkout.
				return err
			}
			s.logger.Error("Failed to persist order",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
			return shared.ErrPersistence
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	handle, err := s.initiatePayment(ctx, o, req.Provider)
	if err != nil {
		s.compensatePaymentFailure(ctx, o, lines, "payment initiation failed")
		return nil, shared.ErrPaymentInitiation
	}

	if err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := o.AttachTransaction(handle.TransactionID); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, o)
	}); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	s.logger.Info("Checkout completed",
		zap.String("order_number", o.OrderNumber),
		zap.String("customer_id", customerID.String()),
		zap.Int("sub_orders", len(o.SubOrders)),
		zap.String("final_amount", o.FinalAmount.StringFixed(2)),
	)

	resp := ToCheckoutResponse(o, handle)
	return &resp, nil
}

// loadProducts resolves every cart line to an active catalog product
func (s *CheckoutService) loadProducts(ctx context.Context, lines []cart.CartLine) (map[uuid.UUID]*catalog.Product, error) {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}

	products, err := s.catalogReader.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || product == nil {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND",
				fmt.Sprintf("Product %s is no longer available", line.ProductID))
		}
		if !product.IsActive {
			return nil, shared.NewDomainError("PRODUCT_INACTIVE",
				fmt.Sprintf("Product %s is not for sale", product.Name))
		}
		if line.HasVariant() && product.Variant(*line.VariantID) == nil {
			return nil, shared.NewDomainError("VARIANT_NOT_FOUND",
				fmt.Sprintf("Variant %s of product %s does not exist", line.VariantID, product.Name))
		}
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Cart line quantity must be positive")
		}
	}

	return products, nil
}

// buildSubOrders prices every seller group into a sub-order
func (s *CheckoutService) buildSubOrders(groups []cart.SellerGroup, products map[uuid.UUID]*catalog.Product) ([]*order.SubOrder, decimal.Decimal, error) {
	subOrders := make([]*order.SubOrder, 0, len(groups))
	subtotal := decimal.Zero

	for _, group := range groups {
		items := make([]*order.OrderItem, 0, len(group.Lines))
		for _, line := range group.Lines {
			product := products[line.ProductID]
			priced := pricing.PriceLine(line, product)
			item, err := order.NewOrderItem(line.ProductID, line.VariantID, product.Name, line.Quantity, priced.UnitPrice)
			if err != nil {
				return nil, decimal.Zero, err
			}
			items = append(items, item)
		}
		sub, err := order.NewSubOrder(group.SellerID, items)
		if err != nil {
			return nil, decimal.Zero, err
		}
		subOrders = append(subOrders, sub)
		subtotal = subtotal.Add(sub.Subtotal)
	}

	return subOrders, subtotal, nil
}

// evaluateCoupon loads and evaluates the coupon; a rejection surfaces as
// CouponInvalidError with the specific reason.
func (s *CheckoutService) evaluateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*promotion.Coupon, decimal.Decimal, error) {
	coupon, err := s.couponByCode(ctx, code)
	if err != nil {
		return nil, decimal.Zero, err
	}

	eval := pricing.EvaluateCoupon(coupon, subtotal, time.Now())
	if !eval.Valid {
		return nil, decimal.Zero, &shared.CouponInvalidError{
			CouponCode: coupon.Code,
			Reason:     string(eval.Reason),
		}
	}
	return coupon, eval.DiscountValue, nil
}

func (s *CheckoutService) couponByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	var coupon *promotion.Coupon
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.CouponRepo().FindByCode(ctx, code)
		if err != nil {
			return err
		}
		coupon = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

// reserveStock reserves every line atomically. On the first failure all
// prior reservations are released before the error propagates, so a
// partially reserved cart never leaks holds.
func (s *CheckoutService) reserveStock(ctx context.Context, repos TransactionalRepositories, o *order.Order, lines []cart.CartLine) error {
	reserved := make([]reservedLine, 0, len(lines))
	for _, line := range lines {
		variantID := uuid.Nil
		if line.HasVariant() {
			variantID = *line.VariantID
		}
		if err := repos.StockRepo().Reserve(ctx, line.ProductID, variantID, line.Quantity, &o.ID, o.OrderNumber); err != nil {
			s.releaseReserved(ctx, repos, o, reserved)
			return err
		}
		reserved = append(reserved, reservedLine{productID: line.ProductID, variantID: variantID, quantity: line.Quantity})
	}
	return nil
}

// releaseReserved undoes reservations best-effort; failures are logged
// and the enclosing transaction rollback covers the rest. When called
// inside the checkout transaction the RELEASE ledger entries roll back
// together with the RESERVE entries they compensate, leaving no trace of
// the failed attempt; entries only persist when this runs after commit,
// via compensatePaymentFailure.
func (s *CheckoutService) releaseReserved(ctx context.Context, repos TransactionalRepositories, o *order.Order, reserved []reservedLine) {
	for _, r := range reserved {
		if err := repos.StockRepo().Release(ctx, r.productID, r.variantID, r.quantity, &o.ID, o.OrderNumber); err != nil {
			s.logger.Warn("Failed to release reservation during compensation",
				zap.String("product_id", r.productID.String()),
				zap.Int64("quantity", r.quantity),
				zap.Error(err),
			)
		}
	}
}

// initiatePayment opens a payment session for the order
func (s *CheckoutService) initiatePayment(ctx context.Context, o *order.Order, provider payment.Provider) (*payment.Handle, error) {
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	gateway, err := s.gateways.Gateway(provider)
	if err != nil {
		return nil, err
	}

	handle, err := gateway.Initiate(ctx, &payment.InitiateRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Amount:      o.FinalAmount,
		Currency:    string(valueobject.DefaultCurrency),
		Provider:    provider,
		CallbackURL: s.cfg.CallbackURL,
		ReturnURL:   s.cfg.ReturnURL,
		ExpireAt:    time.Now().Add(s.cfg.PaymentExpiry),
	})
	if err != nil {
		s.logger.Error("Payment initiation failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("provider", provider.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return handle, nil
}

// compensatePaymentFailure releases all reservations and cancels the
// order after the gateway refused to open a session.
func (s *CheckoutService) compensatePaymentFailure(ctx context.Context, o *order.Order, lines []cart.CartLine, reason string) {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range lines {
			variantID := uuid.Nil
			if line.HasVariant() {
				variantID = *line.VariantID
			}
			if err := repos.StockRepo().Release(ctx, line.ProductID, variantID, line.Quantity, &o.ID, o.OrderNumber); err != nil {
				return err
			}
		}
		if err := o.MarkPaymentFailed(reason); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, o)
	})
	if err != nil {
		s.logger.Error("Compensation after payment initiation failure did not complete",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}

// publishEvents publishes pending domain events best-effort
func (s *CheckoutService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		return
	}
	o.ClearDomainEvents()
}
