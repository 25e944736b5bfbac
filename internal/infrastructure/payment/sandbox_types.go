package payment

// sandboxCreateRequest opens a payment session in the sandbox
type sandboxCreateRequest struct {
	OrderNumber string            `json:"order_number"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url"`
	ReturnURL   string            `json:"return_url,omitempty"`
	ExpireAt    string            `json:"expire_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// sandboxCreateResponse is the sandbox answer to a created session
type sandboxCreateResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentURL    string `json:"payment_url"`
	ExpireAt      string `json:"expire_at"`
}

// sandboxQueryResponse is the sandbox answer to a status query
type sandboxQueryResponse struct {
	TransactionID string `json:"transaction_id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	FailureReason string `json:"failure_reason,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
}

// sandboxRefundRequest asks the sandbox to return funds
type sandboxRefundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

// sandboxRefundResponse is the sandbox answer to a refund
type sandboxRefundResponse struct {
	RefundID   string `json:"refund_id"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	RefundedAt string `json:"refunded_at,omitempty"`
}

// sandboxNotification is the callback pushed on a status change
type sandboxNotification struct {
	TransactionID string `json:"transaction_id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	PaidAt        string `json:"paid_at,omitempty"`
}

// sandboxErrorResponse is the sandbox error envelope
type sandboxErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
