package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	"github.com/mwangikim/nyumbapay/internal/domain/port/persistence"
)

// Actors recorded in the transition log
const (
	ActorInitiator = "initiator"
	ActorCallback  = "callback"
	ActorSweeper   = "sweeper"
)

// Ledger owns the transaction state machine. It is the only component that
// mutates transaction state; callbacks and the sweeper both funnel their
// terminal writes through Resolve, serialized by the repository's
// compare-and-swap so that racing writers cannot both apply a transition.
type Ledger struct {
	repo         persistence.LedgerRepository
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewLedger creates a new transaction ledger
func NewLedger(
	repo persistence.LedgerRepository,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Ledger {
	return &Ledger{
		repo:         repo,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Create stores a new transaction in CREATED for a validated request
func (l *Ledger) Create(ctx context.Context, req entity.PaymentRequest) (*entity.Transaction, error) {
	txn := entity.NewTransaction(req, l.timeProvider.Now())

	if err := l.repo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	l.logger.Info("Transaction created", map[string]any{
		"transaction_id":    txn.ID,
		"tenant_id":         txn.TenantID,
		"account_reference": txn.AccountReference,
		"amount":            txn.Amount,
	})
	return txn, nil
}

// MarkSent transitions CREATED -> SENT and records the provider-assigned
// checkout id. A transaction that is not currently CREATED is returned
// unchanged (logged no-op).
func (l *Ledger) MarkSent(ctx context.Context, id, checkoutID string) (*entity.Transaction, error) {
	return l.advance(ctx, id, entity.StateCreated, entity.StateSent, func(txn *entity.Transaction) {
		txn.GatewayCheckoutID = checkoutID
	}, ActorInitiator)
}

// MarkPending transitions SENT -> PENDING_CONFIRMATION once the initiation
// acknowledgment is received but the outcome is not yet known.
func (l *Ledger) MarkPending(ctx context.Context, id string) (*entity.Transaction, error) {
	return l.advance(ctx, id, entity.StateSent, entity.StatePendingConfirmation, nil, ActorInitiator)
}

// FailInitiation terminates a CREATED transaction whose gateway initiation
// failed before any checkout id was assigned. The row is never silently lost.
func (l *Ledger) FailInitiation(ctx context.Context, id string, resultCode *int, message string) (*entity.Transaction, error) {
	return l.advance(ctx, id, entity.StateCreated, entity.StateFailed, func(txn *entity.Transaction) {
		txn.ResultCode = resultCode
		txn.ResultMessage = message
	}, ActorInitiator)
}

// Resolve is the single authoritative terminal-transition entry point, used
// by both the callback receiver and the reconciliation sweeper. It is
// idempotent: a transaction that is already terminal is returned unchanged,
// protecting against duplicate callbacks and callback/sweeper races.
func (l *Ledger) Resolve(ctx context.Context, checkoutID string, outcome entity.Outcome, actor string) (*entity.Transaction, error) {
	if outcome.State != entity.StateSucceeded && outcome.State != entity.StateFailed {
		return nil, fmt.Errorf("%w: %s is not a resolvable outcome", errs.ErrInternalServer, outcome.State)
	}

	for {
		txn, err := l.repo.GetByCheckoutID(ctx, checkoutID)
		if err != nil {
			return nil, err
		}

		if txn.State.IsTerminal() {
			l.logger.Info("Transition skipped, transaction already terminal", map[string]any{
				"transaction_id": txn.ID,
				"checkout_id":    checkoutID,
				"state":          string(txn.State),
				"actor":          actor,
			})
			return txn, nil
		}

		if !entity.CanTransition(txn.State, outcome.State) {
			return nil, errs.NewTransitionError(txn.ID, string(txn.State), string(outcome.State), errs.ErrStateConflict)
		}

		from := txn.State
		code := outcome.ResultCode
		txn.State = outcome.State
		txn.ResultCode = &code
		txn.ResultMessage = outcome.ResultMessage
		if outcome.State == entity.StateSucceeded {
			txn.ProviderReceipt = outcome.ProviderReceipt
		}
		txn.LastTransitionAt = l.timeProvider.Now()

		err = l.repo.ApplyTransition(ctx, txn, from, l.transitionRecord(txn, from, actor))
		if err == nil {
			l.logger.Info("Transaction resolved", map[string]any{
				"transaction_id": txn.ID,
				"checkout_id":    checkoutID,
				"state":          string(txn.State),
				"result_code":    outcome.ResultCode,
				"actor":          actor,
			})
			return txn, nil
		}
		if errs.IsStateConflictError(err) {
			// Lost the race; re-read and observe the winner's write
			continue
		}
		return nil, err
	}
}

// Expire transitions PENDING_CONFIRMATION -> EXPIRED after the sweeper gives
// up on a transaction with no resolution.
func (l *Ledger) Expire(ctx context.Context, id string) (*entity.Transaction, error) {
	return l.advance(ctx, id, entity.StatePendingConfirmation, entity.StateExpired, func(txn *entity.Transaction) {
		txn.ResultMessage = "no confirmation received before timeout"
	}, ActorSweeper)
}

// RecordAttempt increments the reconciliation attempt counter
func (l *Ledger) RecordAttempt(ctx context.Context, id string) (int, error) {
	return l.repo.IncrementAttempts(ctx, id)
}

// Get returns the current transaction record
func (l *Ledger) Get(ctx context.Context, id string) (*entity.Transaction, error) {
	return l.repo.GetByID(ctx, id)
}

// StalePending lists transactions stuck in PENDING_CONFIRMATION older than
// the cutoff, for the reconciliation sweeper.
func (l *Ledger) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Transaction, error) {
	return l.repo.ListStalePending(ctx, cutoff, limit)
}

// advance applies a single expected-state transition. A row that is not in
// the expected state, or that moves concurrently, is returned as-is with a
// warning rather than an error: every transition here is requested by exactly
// one actor, so a mismatch means the work was already done or overtaken.
func (l *Ledger) advance(
	ctx context.Context,
	id string,
	from, to entity.State,
	mutate func(*entity.Transaction),
	actor string,
) (*entity.Transaction, error) {
	txn, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if txn.State != from {
		l.logger.Warn("Transition skipped, transaction not in expected state", map[string]any{
			"transaction_id": id,
			"state":          string(txn.State),
			"expected":       string(from),
			"target":         string(to),
			"actor":          actor,
		})
		return txn, nil
	}

	txn.State = to
	if mutate != nil {
		mutate(txn)
	}
	txn.LastTransitionAt = l.timeProvider.Now()

	err = l.repo.ApplyTransition(ctx, txn, from, l.transitionRecord(txn, from, actor))
	if errs.IsStateConflictError(err) {
		l.logger.Warn("Transition lost concurrent race", map[string]any{
			"transaction_id": id,
			"from_state":     string(from),
			"to_state":       string(to),
			"actor":          actor,
		})
		return l.repo.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (l *Ledger) transitionRecord(txn *entity.Transaction, from entity.State, actor string) entity.Transition {
	return entity.Transition{
		TransactionID: txn.ID,
		FromState:     from,
		ToState:       txn.State,
		ResultCode:    txn.ResultCode,
		Actor:         actor,
		OccurredAt:    txn.LastTransitionAt,
	}
}
