package gateway

import (
	"context"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
)

// InitiationResult is the provider's acknowledgment of a push-payment request
type InitiationResult struct {
	// CheckoutID correlates the initiation with its eventual callback or
	// query outcome; it is the idempotency key for all later writes
	CheckoutID string
	// MerchantRequestID is the provider's secondary correlation id
	MerchantRequestID string
	// CustomerMessage is a human-readable acknowledgment string
	CustomerMessage string
}

// QueryResult is the outcome of a synchronous status poll
type QueryResult struct {
	// Pending is true while the provider has not settled the transaction;
	// ResultCode and ResultMessage are meaningless in that case
	Pending       bool
	ResultCode    int
	ResultMessage string
}

// PaymentGateway talks to the mobile-money provider. Implementations hold no
// transaction state; the Ledger owns all persistence.
//
// Possible errors (both methods):
// - ErrGatewayTransport: network failure or per-call timeout
// - ErrGatewayRejected: provider returned a business error for the HTTP call
type PaymentGateway interface {
	// Initiate submits a signed push-payment request. On success the payer
	// receives a prompt and the returned checkout id identifies the attempt.
	Initiate(ctx context.Context, req entity.PaymentRequest) (*InitiationResult, error)

	// QueryStatus polls the provider for the outcome of an earlier initiation.
	// Read-only from the provider's perspective; safe to repeat.
	QueryStatus(ctx context.Context, checkoutID string) (*QueryResult, error)
}
