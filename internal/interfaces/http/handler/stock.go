package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/shop/backend/internal/application/inventory"
)

// StockHandler handles stock level and ledger API endpoints
type StockHandler struct {
	BaseHandler
	stockService *inventoryapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *inventoryapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// RestockRequest adds quantity to a sellable unit's available stock
type RestockRequest struct {
	VariantID string `json:"variant_id,omitempty" binding:"omitempty,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Reference string `json:"reference,omitempty"`
}

// unitVariantID parses the optional variant_id query parameter.
// An absent variant means the product's base unit (uuid.Nil).
func unitVariantID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Query("variant_id")
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetStock godoc
// @ID           getStock
// @Summary      Get the stock level for a sellable unit
// @Tags         stock
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockLevelResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/{productId} [get]
func (h *StockHandler) GetStock(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	variantID, ok := unitVariantID(c)
	if !ok {
		h.BadRequest(c, "Invalid variant ID")
		return
	}

	resp, err := h.stockService.GetStock(c.Request.Context(), productID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListLedger godoc
// @ID           listStockLedger
// @Summary      List stock movements for a sellable unit
// @Description  Returns the append-only movement ledger for the unit, newest first
// @Tags         stock
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]inventoryapp.LedgerEntryResponse]
// @Router       /stock/{productId}/ledger [get]
func (h *StockHandler) ListLedger(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	variantID, ok := unitVariantID(c)
	if !ok {
		h.BadRequest(c, "Invalid variant ID")
		return
	}

	var filter inventoryapp.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.stockService.ListLedger(c.Request.Context(), productID, variantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListLedgerByOrder godoc
// @ID           listStockLedgerByOrder
// @Summary      List the stock movements an order caused
// @Description  Returns the order's reservation, release and commit entries in chronological order
// @Tags         stock
// @Produce      json
// @Param        orderId path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]inventoryapp.LedgerEntryResponse]
// @Router       /stock/ledger/orders/{orderId} [get]
func (h *StockHandler) ListLedgerByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.stockService.ListLedgerByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Restock godoc
// @ID           restock
// @Summary      Replenish a sellable unit's stock
// @Description  Seller-facing: adds quantity to available stock and records a RESTOCK ledger entry
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Param        request body RestockRequest true "Restock request"
// @Success      200 {object} APIResponse[inventoryapp.StockLevelResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock/{productId}/restock [post]
func (h *StockHandler) Restock(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	variantID := uuid.Nil
	if req.VariantID != "" {
		variantID, err = uuid.Parse(req.VariantID)
		if err != nil {
			h.BadRequest(c, "Invalid variant ID")
			return
		}
	}

	resp, err := h.stockService.Restock(c.Request.Context(), productID, variantID, req.Quantity, req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
