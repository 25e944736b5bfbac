package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormStockRepository implements inventory.StockRepository using GORM.
// Reserve, Release, Commit and Restock are single conditional UPDATEs
// guarded by the counter they consume, so two concurrent checkouts can
// never take the same units; the matching ledger entry is appended in
// the same transaction.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByUnit loads the stock item for a product/variant pair
func (r *GormStockRepository) FindByUnit(ctx context.Context, productID, variantID uuid.UUID) (*inventory.StockItem, error) {
	var item inventory.StockItem
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByUnits loads stock items for several units at once
func (r *GormStockRepository) FindByUnits(ctx context.Context, keys []inventory.UnitKey) ([]inventory.StockItem, error) {
	if len(keys) == 0 {
		return []inventory.StockItem{}, nil
	}

	query := r.db.WithContext(ctx)
	clause := query.Session(&gorm.Session{NewDB: true})
	for _, key := range keys {
		clause = clause.Or("product_id = ? AND variant_id = ?", key.ProductID, key.VariantID)
	}

	var items []inventory.StockItem
	if err := query.Where(clause).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Reserve atomically moves quantity from available to reserved and
// appends a RESERVE ledger entry. Returns InsufficientStockError when
// the available quantity does not cover the request.
func (r *GormStockRepository) Reserve(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&inventory.StockItem{}).
			Where("product_id = ? AND variant_id = ? AND available >= ?", productID, variantID, quantity).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available - ?", quantity),
				"reserved":   gorm.Expr("reserved + ?", quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.shortfall(tx, productID, variantID, quantity)
		}

		return r.appendLedger(tx, productID, variantID, inventory.LedgerEntryReserve, quantity, orderID, reference)
	})
}

// Release atomically returns reserved quantity to available and appends
// a RELEASE ledger entry
func (r *GormStockRepository) Release(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&inventory.StockItem{}).
			Where("product_id = ? AND variant_id = ? AND reserved >= ?", productID, variantID, quantity).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available + ?", quantity),
				"reserved":   gorm.Expr("reserved - ?", quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("INVALID_RELEASE", "Cannot release more than is reserved")
		}

		return r.appendLedger(tx, productID, variantID, inventory.LedgerEntryRelease, quantity, orderID, reference)
	})
}

// Commit atomically burns reserved quantity on confirmed payment and
// appends a COMMIT ledger entry
func (r *GormStockRepository) Commit(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Commit quantity must be positive")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&inventory.StockItem{}).
			Where("product_id = ? AND variant_id = ? AND reserved >= ?", productID, variantID, quantity).
			Updates(map[string]interface{}{
				"reserved":   gorm.Expr("reserved - ?", quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("INVALID_COMMIT", "Cannot commit more than is reserved")
		}

		return r.appendLedger(tx, productID, variantID, inventory.LedgerEntryCommit, quantity, orderID, reference)
	})
}

// Restock atomically adds quantity back to available and appends a
// RESTOCK ledger entry
func (r *GormStockRepository) Restock(ctx context.Context, productID, variantID uuid.UUID, quantity int64, orderID *uuid.UUID, reference string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&inventory.StockItem{}).
			Where("product_id = ? AND variant_id = ?", productID, variantID).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available + ?", quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		return r.appendLedger(tx, productID, variantID, inventory.LedgerEntryRestock, quantity, orderID, reference)
	})
}

// Save persists a stock item with optimistic locking
func (r *GormStockRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.StockItem{}).
		Where("id = ?", item.ID).
		Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return r.db.WithContext(ctx).Create(item).Error
	}

	result := r.db.WithContext(ctx).Model(item).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"available":  item.Available,
			"reserved":   item.Reserved,
			"version":    item.Version,
			"updated_at": item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// shortfall distinguishes a missing stock row from an insufficient one
func (r *GormStockRepository) shortfall(tx *gorm.DB, productID, variantID uuid.UUID, requested int64) error {
	var item inventory.StockItem
	if err := tx.Where("product_id = ? AND variant_id = ?", productID, variantID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return &shared.InsufficientStockError{
		ProductID: productID.String(),
		VariantID: variantID.String(),
		Requested: requested,
		Available: item.Available,
	}
}

// appendLedger records the movement with the post-update available
// quantity snapshot
func (r *GormStockRepository) appendLedger(tx *gorm.DB, productID, variantID uuid.UUID, entryType inventory.LedgerEntryType, quantity int64, orderID *uuid.UUID, reference string) error {
	var item inventory.StockItem
	if err := tx.Where("product_id = ? AND variant_id = ?", productID, variantID).
		First(&item).Error; err != nil {
		return err
	}
	entry := inventory.NewLedgerEntry(&item, entryType, quantity, orderID, reference)
	return tx.Create(entry).Error
}

// GormLedgerRepository implements inventory.LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// FindByUnit lists movements for a product/variant pair, newest first
func (r *GormLedgerRepository) FindByUnit(ctx context.Context, productID, variantID uuid.UUID, filter shared.Filter) ([]inventory.StockLedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.StockLedgerEntry{}).
		Where("product_id = ? AND variant_id = ?", productID, variantID)

	if entryType, ok := filter.Filters["entry_type"]; ok {
		query = query.Where("entry_type = ?", entryType)
	}

	orderBy := ValidateSortField(filter.OrderBy, LedgerSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []inventory.StockLedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByOrder lists movements recorded against an order
func (r *GormLedgerRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.StockLedgerEntry, error) {
	var entries []inventory.StockLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure the repositories implement their domain contracts
var _ inventory.StockRepository = (*GormStockRepository)(nil)
var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
