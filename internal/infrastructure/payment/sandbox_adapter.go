package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/shop/backend/internal/domain/payment"
	"github.com/shop/backend/internal/domain/shared/valueobject"
)

const (
	sandboxCreatePath = "/v1/payments"
	sandboxQueryPath  = "/v1/payments/%s"
	sandboxRefundPath = "/v1/refunds"
)

// SandboxAdapter implements the payment.Gateway port against the
// sandbox processor. Requests are HMAC-signed; concurrent Verify calls
// for the same transaction are collapsed into a single gateway query.
type SandboxAdapter struct {
	config     *SandboxConfig
	httpClient *http.Client
	verifies   singleflight.Group
}

// NewSandboxAdapter creates a new sandbox gateway adapter
func NewSandboxAdapter(config *SandboxConfig) (*SandboxAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SandboxAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.timeout(),
		},
	}, nil
}

// Provider returns which processor this gateway talks to
func (a *SandboxAdapter) Provider() payment.Provider {
	return payment.ProviderSandbox
}

// Initiate opens a payment session and returns the handle the payer
// needs to complete it
func (a *SandboxAdapter) Initiate(ctx context.Context, req *payment.InitiateRequest) (*payment.Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = string(valueobject.DefaultCurrency)
	}

	body := sandboxCreateRequest{
		OrderNumber: req.OrderNumber,
		Amount:      req.Amount.StringFixed(2),
		Currency:    currency,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Metadata:    req.Metadata,
	}
	if !req.ExpireAt.IsZero() {
		body.ExpireAt = req.ExpireAt.Format(time.RFC3339)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, sandboxCreatePath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var respData sandboxCreateResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("sandbox: failed to parse response: %w", err)
	}

	handle := &payment.Handle{
		TransactionID: respData.TransactionID,
		Provider:      payment.ProviderSandbox,
		Status:        mapSandboxStatus(respData.Status),
		PaymentURL:    respData.PaymentURL,
	}
	if respData.ExpireAt != "" {
		if t, err := time.Parse(time.RFC3339, respData.ExpireAt); err == nil {
			handle.ExpireAt = t
		}
	}

	return handle, nil
}

// Verify fetches the authoritative payment result. Safe to call any
// number of times for the same transaction.
func (a *SandboxAdapter) Verify(ctx context.Context, req *payment.VerifyRequest) (*payment.VerifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.TransactionID
	if key == "" {
		key = req.OrderNumber
	}

	result, err, _ := a.verifies.Do(key, func() (interface{}, error) {
		return a.queryGateway(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*payment.VerifyResult), nil
}

// queryGateway performs the actual status query
func (a *SandboxAdapter) queryGateway(ctx context.Context, key string) (*payment.VerifyResult, error) {
	path := fmt.Sprintf(sandboxQueryPath, key)

	respBody, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var respData sandboxQueryResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("sandbox: failed to parse response: %w", err)
	}

	result := &payment.VerifyResult{
		TransactionID: respData.TransactionID,
		Provider:      payment.ProviderSandbox,
		OrderNumber:   respData.OrderNumber,
		Status:        mapSandboxStatus(respData.Status),
		Currency:      respData.Currency,
		FailureReason: respData.FailureReason,
	}

	if respData.Amount != "" {
		if amount, err := decimal.NewFromString(respData.Amount); err == nil {
			result.Amount = amount
		}
	}
	if respData.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, respData.PaidAt); err == nil {
			result.PaidAt = &t
		}
	}

	return result, nil
}

// Refund returns funds for a settled payment
func (a *SandboxAdapter) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := sandboxRefundRequest{
		TransactionID: req.TransactionID,
		Amount:        req.Amount.StringFixed(2),
		Reason:        req.Reason,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, sandboxRefundPath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var respData sandboxRefundResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("sandbox: failed to parse response: %w", err)
	}

	result := &payment.RefundResult{
		RefundID: respData.RefundID,
		Status:   mapSandboxStatus(respData.Status),
	}
	if respData.Amount != "" {
		if amount, err := decimal.NewFromString(respData.Amount); err == nil {
			result.Amount = amount
		}
	}
	if respData.RefundedAt != "" {
		if t, err := time.Parse(time.RFC3339, respData.RefundedAt); err == nil {
			result.RefundedAt = &t
		}
	}

	return result, nil
}

// ParseCallback verifies the signature and decodes a pushed
// notification. Returns ErrInvalidSignature on a bad signature.
func (a *SandboxAdapter) ParseCallback(ctx context.Context, payload []byte, signature string) (*payment.Callback, error) {
	if !a.verifySignature(payload, signature) {
		return nil, payment.ErrInvalidSignature
	}

	var notification sandboxNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return nil, fmt.Errorf("sandbox: failed to parse notification: %w", err)
	}

	callback := &payment.Callback{
		Provider:      payment.ProviderSandbox,
		TransactionID: notification.TransactionID,
		OrderNumber:   notification.OrderNumber,
		Status:        mapSandboxStatus(notification.Status),
		RawPayload:    string(payload),
		Signature:     signature,
	}

	if notification.Amount != "" {
		if amount, err := decimal.NewFromString(notification.Amount); err == nil {
			callback.Amount = amount
		}
	}
	if notification.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, notification.PaidAt); err == nil {
			callback.PaidAt = &t
		}
	}

	return callback, nil
}

// doRequest performs a signed HTTP request to the sandbox API
func (a *SandboxAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := a.config.Endpoint + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", a.authHeader(method, path, body))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, payment.ErrTransactionUnknown
	}
	if resp.StatusCode >= 400 {
		var errResp sandboxErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", payment.ErrGatewayRequestFailed, errResp.Code, errResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// authHeader builds the HMAC authorization header for a request
func (a *SandboxAdapter) authHeader(method, path string, body []byte) string {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := generateNonce()

	message := fmt.Sprintf("%s\n%s\n%s\n%s\n%s", method, path, timestamp, nonce, string(body))
	signature := a.sign([]byte(message))

	return fmt.Sprintf(`SHOP-HMAC-SHA256 key="%s",timestamp="%s",nonce="%s",signature="%s"`,
		a.config.APIKey, timestamp, nonce, signature)
}

// sign computes the hex HMAC-SHA256 of the message
func (a *SandboxAdapter) sign(message []byte) string {
	mac := hmac.New(sha256.New, []byte(a.config.Secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks a callback signature in constant time
func (a *SandboxAdapter) verifySignature(payload []byte, signature string) bool {
	expected := a.sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// generateNonce generates a random nonce string
func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// mapSandboxStatus maps a sandbox status string to our gateway status
func mapSandboxStatus(status string) payment.GatewayStatus {
	s := payment.GatewayStatus(status)
	if s.IsValid() {
		return s
	}
	return payment.GatewayStatusPending
}

// Ensure SandboxAdapter implements the Gateway port
var _ payment.Gateway = (*SandboxAdapter)(nil)
