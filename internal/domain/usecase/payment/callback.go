package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
)

// CallbackReceiver validates provider webhook payloads and drives the
// corresponding ledger transition. Parsing is strict and fails closed:
// a payload missing the checkout id or result code never reaches the ledger.
type CallbackReceiver struct {
	ledger *Ledger
	logger coreport.Logger
	secret string
}

// NewCallbackReceiver creates a new callback receiver. secret is the shared
// token the provider is configured to send with each delivery; an empty
// secret disables the authenticity check (sandbox only).
func NewCallbackReceiver(ledger *Ledger, logger coreport.Logger, secret string) *CallbackReceiver {
	return &CallbackReceiver{
		ledger: ledger,
		logger: logger,
		secret: secret,
	}
}

// HandleResult reports what a callback delivery did to the ledger
type HandleResult struct {
	TransactionID string
	CheckoutID    string
	State         entity.State
	Class         errs.Class
	// Duplicate is true when the transaction was already terminal and the
	// delivery was absorbed as a no-op
	Duplicate bool
}

// stkCallbackEnvelope is the provider's webhook body. Pointer fields
// distinguish "absent" from zero values so malformed payloads are rejected
// instead of scraped.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// Authenticate verifies that a delivery carries the expected shared secret.
// Comparison is constant-time.
func (r *CallbackReceiver) Authenticate(token string) error {
	if r.secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(r.secret)) != 1 {
		r.logger.Warn("Callback rejected: authenticity check failed", nil)
		return errs.ErrCallbackRejected
	}
	return nil
}

// Handle parses a raw webhook payload and resolves the referenced
// transaction. Safe to invoke more than once for the same checkout id:
// duplicates are absorbed by Resolve's no-op-on-terminal guarantee.
func (r *CallbackReceiver) Handle(ctx context.Context, raw []byte) (*HandleResult, error) {
	cb, err := r.parse(raw)
	if err != nil {
		r.logger.Warn("Callback rejected: malformed payload", map[string]any{
			"error":        err.Error(),
			"payload_size": len(raw),
		})
		return nil, err
	}

	inner := cb.Body.StkCallback
	before, err := r.ledger.repo.GetByCheckoutID(ctx, inner.CheckoutRequestID)
	if err != nil {
		r.logger.Warn("Callback references unknown checkout id", map[string]any{
			"checkout_id": inner.CheckoutRequestID,
		})
		return nil, err
	}
	wasTerminal := before.State.IsTerminal()

	outcome := entity.Outcome{
		ResultCode:    *inner.ResultCode,
		ResultMessage: inner.ResultDesc,
	}
	class := errs.Class("")
	if *inner.ResultCode == errs.ResultCodeSuccess {
		outcome.State = entity.StateSucceeded
		receipt, confirmed := r.successDetails(cb)
		outcome.ProviderReceipt = receipt
		if confirmed != 0 && confirmed != before.Amount {
			r.logger.Warn("Callback amount differs from requested amount", map[string]any{
				"transaction_id": before.ID,
				"requested":      before.Amount,
				"confirmed":      confirmed,
			})
		}
	} else {
		outcome.State = entity.StateFailed
		class = errs.ClassifyResultCode(*inner.ResultCode)
	}

	txn, err := r.ledger.Resolve(ctx, inner.CheckoutRequestID, outcome, ActorCallback)
	if err != nil {
		return nil, err
	}

	return &HandleResult{
		TransactionID: txn.ID,
		CheckoutID:    inner.CheckoutRequestID,
		State:         txn.State,
		Class:         class,
		Duplicate:     wasTerminal,
	}, nil
}

// parse validates the payload shape and returns the inner callback
func (r *CallbackReceiver) parse(raw []byte) (*stkCallbackEnvelope, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrCallbackInvalid, err.Error())
	}
	cb := env.Body.StkCallback
	switch {
	case cb == nil:
		return nil, fmt.Errorf("%w: missing stkCallback body", errs.ErrCallbackInvalid)
	case cb.CheckoutRequestID == "":
		return nil, fmt.Errorf("%w: missing checkout id", errs.ErrCallbackInvalid)
	case cb.ResultCode == nil:
		return nil, fmt.Errorf("%w: missing result code", errs.ErrCallbackInvalid)
	}
	return &env, nil
}

// successDetails extracts the receipt number and confirmed amount from the
// metadata items of a successful callback
func (r *CallbackReceiver) successDetails(env *stkCallbackEnvelope) (receipt string, confirmed int64) {
	cb := env.Body.StkCallback
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				receipt = v
			}
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				confirmed = int64(v)
			}
		}
	}
	return receipt, confirmed
}
