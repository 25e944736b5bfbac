package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/order"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads an order with its sub-orders and items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByOrderNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		Where("order_number = ?", orderNumber).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByTransactionID finds the order bound to a gateway transaction
func (r *GormOrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		Where("transaction_id = ?", transactionID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByCustomer lists a customer's orders with filtering
func (r *GormOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.OrderModel{}).
			Preload("SubOrders.Items").
			Where("customer_id = ?", customerID),
		filter,
	)

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// FindBySeller lists orders containing a sub-order for the seller
func (r *GormOrderRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.OrderModel{}).
			Preload("SubOrders.Items").
			Where("id IN (?)", r.db.Model(&models.SubOrderModel{}).
				Select("order_id").
				Where("seller_id = ?", sellerID)),
		filter,
	)

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// FindStalePending lists orders still awaiting payment since before the
// cutoff, oldest first. The payment timeout sweeper consumes these.
func (r *GormOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		Where("payment_status = ? AND created_at < ?", order.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// Save persists the whole aggregate with optimistic locking. New orders
// are created with their full sub-order/item graph; existing orders get
// a version-guarded update and their child rows replaced.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	if !o.AmountsConsistent() {
		return shared.NewDomainError("AMOUNT_MISMATCH", "Order amounts do not satisfy the financial invariant")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		err := tx.Model(&models.OrderModel{}).
			Where("id = ?", o.ID).
			Select("version").
			Scan(&currentVersion).Error
		if err != nil {
			return err
		}

		if currentVersion == 0 {
			// New aggregate: insert the full graph. A unique violation on
			// order_number means another checkout won the number between
			// NextOrderNumber and this insert, so the caller retries with
			// a fresh number.
			m := models.OrderModelFromDomain(o)
			if err := tx.Create(m).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrConcurrencyConflict
				}
				return err
			}
			return nil
		}

		if currentVersion != o.Version {
			return shared.ErrConcurrencyConflict
		}

		o.IncrementVersion()
		o.UpdatedAt = time.Now()
		m := models.OrderModelFromDomain(o)

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(map[string]interface{}{
				"coupon_id":       m.CouponID,
				"total_amount":    m.TotalAmount,
				"discount_amount": m.DiscountAmount,
				"shipping_fee":    m.ShippingFee,
				"tax_amount":      m.TaxAmount,
				"final_amount":    m.FinalAmount,
				"payment_status":  m.PaymentStatus,
				"transaction_id":  m.TransactionID,
				"status":          m.Status,
				"cancel_reason":   m.CancelReason,
				"paid_at":         m.PaidAt,
				"cancelled_at":    m.CancelledAt,
				"version":         m.Version,
				"updated_at":      m.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		// Sub-orders and items are owned exclusively by the order, so a
		// full replace keeps the child rows in step with the aggregate.
		for i := range m.SubOrders {
			sub := &m.SubOrders[i]
			if err := tx.Save(sub).Error; err != nil {
				return err
			}
			for j := range sub.Items {
				sub.Items[j].SubOrderID = sub.ID
				if err := tx.Save(&sub.Items[j]).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// NextOrderNumber issues the next sequential order number.
// Format: ORD-YYYY-NNNNN (e.g. ORD-2026-00001)
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("ORD-%d-", year)

	var lastNumber string
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &lastNumber).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if lastNumber != "" {
		parts := strings.Split(lastNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyFilter applies filter options to the query
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query
}

func toDomainOrders(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
