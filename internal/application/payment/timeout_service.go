package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"go.uber.org/zap"
)

// sweepBatchSize bounds how many stale orders one sweep processes
const sweepBatchSize = 100

// TimeoutService cancels orders whose payment session lapsed without a
// result. Before cancelling it re-checks the gateway: a payment that
// actually settled while the callback was lost is applied, not dropped.
type TimeoutService struct {
	paymentSvc *PaymentService
	txScope    TransactionScope
	expiry     time.Duration
	logger     *zap.Logger
}

// NewTimeoutService creates a new TimeoutService
func NewTimeoutService(
	paymentSvc *PaymentService,
	txScope TransactionScope,
	expiry time.Duration,
	logger *zap.Logger,
) *TimeoutService {
	return &TimeoutService{
		paymentSvc: paymentSvc,
		txScope:    txScope,
		expiry:     expiry,
		logger:     logger,
	}
}

// SweepStats summarizes one sweep run
type SweepStats struct {
	TotalStale  int       `json:"total_stale"`
	Settled     int       `json:"settled"`
	Cancelled   int       `json:"cancelled"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SweepExpired finds orders awaiting payment past the expiry window and
// resolves each one.
func (s *TimeoutService) SweepExpired(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{ProcessedAt: time.Now()}
	cutoff := time.Now().Add(-s.expiry)

	var stale []order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindStalePending(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return err
		}
		stale = found
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to find stale pending orders", zap.Error(err))
		return nil, err
	}

	stats.TotalStale = len(stale)
	if stats.TotalStale == 0 {
		s.logger.Debug("No stale pending orders found")
		return stats, nil
	}

	s.logger.Info("Found stale pending orders", zap.Int("count", stats.TotalStale))

	for idx := range stale {
		o := &stale[idx]
		settled, err := s.resolve(ctx, o)
		if err != nil {
			s.logger.Error("Failed to resolve stale order",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		if settled {
			stats.Settled++
		} else {
			stats.Cancelled++
		}
	}

	s.logger.Info("Completed payment timeout sweep",
		zap.Int("total", stats.TotalStale),
		zap.Int("settled", stats.Settled),
		zap.Int("cancelled", stats.Cancelled),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// resolve settles or cancels one stale order. Returns true when the
// payment turned out to have succeeded.
func (s *TimeoutService) resolve(ctx context.Context, o *order.Order) (bool, error) {
	// the callback may have been lost; ask the gateway first
	if o.TransactionID != "" {
		result, err := s.paymentSvc.VerifyPayment(ctx, o.ID)
		if err == nil && result.PaymentStatus == order.PaymentStatusPaid.String() {
			return true, nil
		}
		if err == nil && result.PaymentStatus == order.PaymentStatusFailed.String() {
			return false, nil
		}
		if err != nil {
			s.logger.Warn("Gateway verification failed during sweep, cancelling locally",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
		}
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		fresh, err := repos.OrderRepo().FindByID(ctx, o.ID)
		if err != nil {
			return err
		}
		if !fresh.IsAwaitingPayment() {
			return nil
		}
		if err := fresh.MarkPaymentFailed("payment timed out"); err != nil {
			return err
		}
		for idx := range fresh.SubOrders {
			for _, item := range fresh.SubOrders[idx].Items {
				variantID := itemVariant(item)
				if err := repos.StockRepo().Release(ctx, item.ProductID, variantID, item.Quantity, &fresh.ID, fresh.OrderNumber); err != nil {
					return err
				}
			}
		}
		return repos.OrderRepo().Save(ctx, fresh)
	})
	return false, err
}

func itemVariant(item order.OrderItem) uuid.UUID {
	if item.VariantID != nil {
		return *item.VariantID
	}
	return uuid.Nil
}
