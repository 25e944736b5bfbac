package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/inventory"
	"github.com/shop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockLevelResponse is the stock view for one sellable unit
type StockLevelResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id,omitempty"`
	SellerID  uuid.UUID `json:"seller_id"`
	Available int64     `json:"available"`
	Reserved  int64     `json:"reserved"`
	Total     int64     `json:"total"`
}

// LedgerEntryResponse is one stock movement as returned to clients
type LedgerEntryResponse struct {
	EntryID        uuid.UUID  `json:"entry_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      uuid.UUID  `json:"variant_id,omitempty"`
	EntryType      string     `json:"entry_type"`
	Quantity       int64      `json:"quantity"`
	QuantityBefore int64      `json:"quantity_before"`
	QuantityAfter  int64      `json:"quantity_after"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	Reference      string     `json:"reference,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LedgerFilter narrows ledger listings
type LedgerFilter struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// StockService exposes stock levels and the movement ledger, and lets
// sellers restock their units.
type StockService struct {
	stockRepo  inventory.StockRepository
	ledgerRepo inventory.LedgerRepository
	logger     *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(stockRepo inventory.StockRepository, ledgerRepo inventory.LedgerRepository, logger *zap.Logger) *StockService {
	return &StockService{
		stockRepo:  stockRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// GetStock returns the stock level for a product/variant pair
func (s *StockService) GetStock(ctx context.Context, productID, variantID uuid.UUID) (*StockLevelResponse, error) {
	item, err := s.stockRepo.FindByUnit(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	return &StockLevelResponse{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		SellerID:  item.SellerID,
		Available: item.Available,
		Reserved:  item.Reserved,
		Total:     item.Total(),
	}, nil
}

// ListLedger lists stock movements for a unit, newest first
func (s *StockService) ListLedger(ctx context.Context, productID, variantID uuid.UUID, filter LedgerFilter) ([]LedgerEntryResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}

	entries, err := s.ledgerRepo.FindByUnit(ctx, productID, variantID, domainFilter)
	if err != nil {
		return nil, err
	}
	return toLedgerResponses(entries), nil
}

// ListLedgerByOrder lists the stock movements an order caused
func (s *StockService) ListLedgerByOrder(ctx context.Context, orderID uuid.UUID) ([]LedgerEntryResponse, error) {
	entries, err := s.ledgerRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toLedgerResponses(entries), nil
}

// Restock adds units to a product's available stock
func (s *StockService) Restock(ctx context.Context, productID, variantID uuid.UUID, quantity int64, reference string) (*StockLevelResponse, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	if err := s.stockRepo.Restock(ctx, productID, variantID, quantity, nil, reference); err != nil {
		return nil, err
	}

	s.logger.Info("Stock replenished",
		zap.String("product_id", productID.String()),
		zap.Int64("quantity", quantity),
	)

	return s.GetStock(ctx, productID, variantID)
}

func toLedgerResponses(entries []inventory.StockLedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, LedgerEntryResponse{
			EntryID:        entry.ID,
			ProductID:      entry.ProductID,
			VariantID:      entry.VariantID,
			EntryType:      string(entry.EntryType),
			Quantity:       entry.Quantity,
			QuantityBefore: entry.QuantityBefore,
			QuantityAfter:  entry.QuantityAfter,
			OrderID:        entry.OrderID,
			Reference:      entry.Reference,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return responses
}
