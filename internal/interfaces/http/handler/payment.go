package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentapp "github.com/shop/backend/internal/application/payment"
	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/interfaces/http/dto"
)

// SignatureHeader carries the gateway's HMAC signature on callback requests
const SignatureHeader = "X-Shop-Signature"

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *paymentapp.PaymentService
	timeoutService *paymentapp.TimeoutService
	gateways       payment.Registry
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	paymentService *paymentapp.PaymentService,
	timeoutService *paymentapp.TimeoutService,
	gateways payment.Registry,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		timeoutService: timeoutService,
		gateways:       gateways,
	}
}

// Callback godoc
// @ID           paymentCallback
// @Summary      Receive a payment gateway callback
// @Description  Verifies the callback signature, re-queries the gateway for the authoritative result and settles the order. Safe to retry: replays return the recorded outcome.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        provider path string true "Gateway provider" Enums(SANDBOX, STRIPE, PAYPAL)
// @Param        X-Shop-Signature header string true "HMAC signature of the raw body"
// @Success      200 {object} APIResponse[paymentapp.CallbackResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /payments/callback/{provider} [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	provider := payment.Provider(c.Param("provider"))
	if !provider.IsValid() {
		h.BadRequest(c, "Unknown payment provider")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read callback body")
		return
	}
	if len(payload) == 0 {
		h.BadRequest(c, "Empty callback body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing callback signature")
		return
	}

	result, err := h.paymentService.ProcessCallback(c.Request.Context(), provider, payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature),
			errors.Is(err, paymentapp.ErrCallbackVerificationFailed):
			h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid callback signature")
		case errors.Is(err, paymentapp.ErrCallbackOrderNotFound):
			h.NotFound(c, "No order matches this callback")
		case errors.Is(err, payment.ErrGatewayNotConfigured):
			h.BadRequest(c, "Gateway not configured")
		case errors.Is(err, payment.ErrGatewayUnavailable):
			h.ErrorWithCode(c, dto.ErrCodeGatewayUnavailable, "Gateway temporarily unavailable")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, result)
}

// VerifyPayment godoc
// @ID           verifyPayment
// @Summary      Verify an order's payment with its gateway
// @Description  Actively re-queries the gateway for the order's transaction and applies the authoritative result. Used when a callback was missed.
// @Tags         payments
// @Produce      json
// @Param        orderId path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[paymentapp.CallbackResult]
// @Failure      404 {object} ErrorResponse
// @Router       /payments/verify/{orderId} [post]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	result, err := h.paymentService.VerifyPayment(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrTransactionUnknown):
			h.NotFound(c, "Transaction not found in gateway")
		case errors.Is(err, payment.ErrGatewayUnavailable):
			h.ErrorWithCode(c, dto.ErrCodeGatewayUnavailable, "Gateway temporarily unavailable")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, result)
}

// SweepExpired godoc
// @ID           sweepExpiredPayments
// @Summary      Resolve stale pending payments
// @Description  Finds orders awaiting payment past the expiry window, re-queries the gateway for each and settles or cancels them. Normally run by the background sweeper; exposed for operators.
// @Tags         payments
// @Produce      json
// @Success      200 {object} APIResponse[paymentapp.SweepStats]
// @Router       /payments/sweep [post]
func (h *PaymentHandler) SweepExpired(c *gin.Context) {
	stats, err := h.timeoutService.SweepExpired(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// ListProviders godoc
// @ID           listPaymentProviders
// @Summary      List configured payment providers
// @Tags         payments
// @Produce      json
// @Success      200 {object} APIResponse[[]string]
// @Router       /payments/providers [get]
func (h *PaymentHandler) ListProviders(c *gin.Context) {
	providers := h.gateways.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.String())
	}
	h.Success(c, names)
}
