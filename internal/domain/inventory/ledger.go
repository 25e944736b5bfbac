package inventory

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryType classifies a stock movement
type LedgerEntryType string

const (
	LedgerEntryReserve LedgerEntryType = "RESERVE"
	LedgerEntryRelease LedgerEntryType = "RELEASE"
	LedgerEntryCommit  LedgerEntryType = "COMMIT"
	LedgerEntryRestock LedgerEntryType = "RESTOCK"
)

// IsValid checks if the entry type is a known value
func (t LedgerEntryType) IsValid() bool {
	switch t {
	case LedgerEntryReserve, LedgerEntryRelease, LedgerEntryCommit, LedgerEntryRestock:
		return true
	}
	return false
}

// StockLedgerEntry is one line of the append-only stock movement audit
// trail. Entries are never updated or deleted. QuantityBefore and
// QuantityAfter snapshot the available quantity around the movement, so
// each entry is self-contained: a COMMIT burns reserved units and leaves
// the available quantity untouched, which makes the pre-movement balance
// impossible to reconstruct from the delta alone.
type StockLedgerEntry struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StockItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID      uuid.UUID       `gorm:"type:uuid;not null"`
	EntryType      LedgerEntryType `gorm:"type:varchar(16);not null"`
	Quantity       int64           `gorm:"not null"`
	QuantityBefore int64           `gorm:"not null"`
	QuantityAfter  int64           `gorm:"not null"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index"`
	Reference      string          `gorm:"type:varchar(128)"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// NewLedgerEntry records a stock movement against a stock item. The item
// carries the post-movement state; the pre-movement available quantity is
// reconstructed from the entry type.
func NewLedgerEntry(item *StockItem, entryType LedgerEntryType, quantity int64, orderID *uuid.UUID, reference string) *StockLedgerEntry {
	before := item.Available
	switch entryType {
	case LedgerEntryReserve:
		before += quantity
	case LedgerEntryRelease, LedgerEntryRestock:
		before -= quantity
	case LedgerEntryCommit:
		// Committing burns reserved units, available is unchanged.
	}

	return &StockLedgerEntry{
		ID:             uuid.New(),
		StockItemID:    item.ID,
		ProductID:      item.ProductID,
		VariantID:      item.VariantID,
		EntryType:      entryType,
		Quantity:       quantity,
		QuantityBefore: before,
		QuantityAfter:  item.Available,
		OrderID:        orderID,
		Reference:      reference,
		CreatedAt:      time.Now(),
	}
}
