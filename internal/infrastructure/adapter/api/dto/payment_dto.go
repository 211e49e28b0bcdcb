package dto

// PaymentRequest represents the API request for initiating a push payment
type PaymentRequest struct {
	Phone            string `json:"phone" binding:"required"`
	Amount           int64  `json:"amount" binding:"required"`
	AccountReference string `json:"accountReference" binding:"required"`
	Description      string `json:"description"`
	EntityID         string `json:"entityId"`
}

// PaymentResponse represents the API response for an accepted initiation
type PaymentResponse struct {
	TransactionID   string `json:"transactionId"`
	CheckoutID      string `json:"checkoutId"`
	CustomerMessage string `json:"customerMessage,omitempty"`
}

// StatusResponse represents the API response for a transaction status lookup
type StatusResponse struct {
	TransactionID   string `json:"transactionId"`
	State           string `json:"state"`
	ResultCode      *int   `json:"resultCode,omitempty"`
	ResultMessage   string `json:"resultMessage,omitempty"`
	ProviderReceipt string `json:"providerReceipt,omitempty"`
	Retryable       bool   `json:"retryable"`
}
