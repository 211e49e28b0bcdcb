package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	gatewayport "github.com/mwangikim/nyumbapay/internal/domain/port/gateway"
)

// InitiationRequest is the raw caller input before normalization
type InitiationRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
	TenantID         string
	EntityID         string
}

// InitiationResult is the caller-visible outcome of a successful initiation
type InitiationResult struct {
	TransactionID   string
	CheckoutID      string
	CustomerMessage string
}

// StatusResult is the caller-visible view of a transaction's current state
type StatusResult struct {
	TransactionID   string
	State           entity.State
	ResultCode      *int
	ResultMessage   string
	ProviderReceipt string
	Retryable       bool
}

// Service orchestrates payment initiation: normalize input, create the
// ledger record, submit through the gateway, and advance the state machine.
// The gateway never writes to the ledger itself.
type Service struct {
	ledger        *Ledger
	gateway       gatewayport.PaymentGateway
	logger        coreport.Logger
	amountCeiling int64
}

// NewService creates a new payment service
func NewService(
	ledger *Ledger,
	gw gatewayport.PaymentGateway,
	logger coreport.Logger,
	amountCeiling int64,
) *Service {
	return &Service{
		ledger:        ledger,
		gateway:       gw,
		logger:        logger,
		amountCeiling: amountCeiling,
	}
}

// Initiate validates the request, creates the transaction and pushes the
// payment prompt to the payer's phone.
//
// Validation failures are rejected before any ledger row or gateway call.
// Gateway failures always leave the row terminal (FAILED) - a transaction is
// never silently lost.
func (s *Service) Initiate(ctx context.Context, raw InitiationRequest) (*InitiationResult, error) {
	phone, err := entity.NormalizePhone(raw.Phone)
	if err != nil {
		return nil, err
	}
	if err := entity.ValidateAmount(raw.Amount, s.amountCeiling); err != nil {
		return nil, err
	}

	req := entity.PaymentRequest{
		Phone:            phone,
		Amount:           raw.Amount,
		AccountReference: raw.AccountReference,
		Description:      raw.Description,
		TenantID:         raw.TenantID,
		EntityID:         raw.EntityID,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn, err := s.ledger.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	ack, err := s.gateway.Initiate(ctx, req)
	if err != nil {
		s.failInitiation(ctx, txn.ID, err)
		return nil, err
	}

	if _, err := s.ledger.MarkSent(ctx, txn.ID, ack.CheckoutID); err != nil {
		return nil, fmt.Errorf("initiation acknowledged but not recorded: %w", err)
	}
	if _, err := s.ledger.MarkPending(ctx, txn.ID); err != nil {
		return nil, fmt.Errorf("initiation acknowledged but not recorded: %w", err)
	}

	s.logger.Info("Payment initiated", map[string]any{
		"transaction_id": txn.ID,
		"checkout_id":    ack.CheckoutID,
		"tenant_id":      raw.TenantID,
		"amount":         raw.Amount,
	})

	return &InitiationResult{
		TransactionID:   txn.ID,
		CheckoutID:      ack.CheckoutID,
		CustomerMessage: ack.CustomerMessage,
	}, nil
}

// Status returns the current state of a transaction, with the retryable
// flag the caller-facing layer uses to offer a "retry payment" action.
func (s *Service) Status(ctx context.Context, id string) (*StatusResult, error) {
	txn, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		TransactionID:   txn.ID,
		State:           txn.State,
		ProviderReceipt: txn.ProviderReceipt,
	}
	if txn.State.IsTerminal() {
		res.ResultCode = txn.ResultCode
		res.ResultMessage = txn.ResultMessage
	}
	if txn.State == entity.StateFailed && txn.ResultCode != nil {
		res.Retryable = errs.ClassifyResultCode(*txn.ResultCode) == errs.ClassRetryable
	}
	if txn.State == entity.StateExpired {
		// Expiry means the outcome never arrived; a fresh attempt is safe
		res.Retryable = true
	}
	return res, nil
}

// failInitiation records the terminal FAILED state for a rejected or
// unreachable initiation. Errors here are logged, not returned: the caller
// already receives the original gateway error.
func (s *Service) failInitiation(ctx context.Context, id string, cause error) {
	var gwErr *errs.GatewayError
	message := "payment could not be submitted"
	if errors.As(cause, &gwErr) && gwErr.Message != "" {
		message = gwErr.Message
	}

	// Persist a result code so Status can classify the stored row. Provider
	// rejections keep their own numeric code; a transport failure has none,
	// so record the send-error code, which classifies as retryable.
	var resultCode *int
	if gwErr != nil {
		if code, convErr := strconv.Atoi(gwErr.Code); convErr == nil {
			resultCode = &code
		}
	}
	if resultCode == nil && errs.ClassifyError(cause) == errs.ClassRetryable {
		code := errs.ResultCodePushSendError
		resultCode = &code
	}

	if _, err := s.ledger.FailInitiation(ctx, id, resultCode, message); err != nil {
		s.logger.Error("Failed to record initiation failure", map[string]any{
			"transaction_id": id,
			"cause":          cause.Error(),
			"error":          err.Error(),
		})
		return
	}

	s.logger.Warn("Payment initiation failed", map[string]any{
		"transaction_id": id,
		"error_kind":     string(errs.KindOf(cause)),
		"error":          cause.Error(),
	})
}
