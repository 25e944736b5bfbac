package handler

import (
	"github.com/gin-gonic/gin"
	checkoutapp "github.com/shop/backend/internal/application/checkout"
)

// CheckoutHandler handles checkout API endpoints
type CheckoutHandler struct {
	BaseHandler
	checkoutService *checkoutapp.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *checkoutapp.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Checkout godoc
// @ID           checkout
// @Summary      Check out the current cart
// @Description  Settles the customer's cart into an order: partitions lines by seller, prices them, applies an optional coupon, reserves stock and initiates payment
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body checkoutapp.CheckoutRequest true "Checkout request"
// @Success      201 {object} APIResponse[checkoutapp.CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	customerID, err := getCustomerID(c)
	if err != nil {
		h.Unauthorized(c, "Customer identity required")
		return
	}

	var req checkoutapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.checkoutService.Checkout(c.Request.Context(), customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}
