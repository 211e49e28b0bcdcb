package persistence

import (
	"context"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
)

// LedgerRepository persists payment transactions. It is the only shared
// mutable resource in the core; every mutating method must be atomic with
// respect to concurrent callers on the same transaction id.
type LedgerRepository interface {
	// Create saves a new CREATED transaction
	//
	// Possible errors:
	// - ErrDatabaseConnection: store unavailable
	Create(ctx context.Context, txn *entity.Transaction) error

	// GetByID retrieves a transaction by its internal id
	//
	// Possible errors:
	// - ErrTransactionNotFound: no such transaction
	// - ErrDatabaseConnection: store unavailable
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// GetByCheckoutID retrieves a transaction by the provider-assigned
	// checkout id. Used by callback and reconciliation writes.
	//
	// Possible errors:
	// - ErrTransactionNotFound: no such transaction
	// - ErrDatabaseConnection: store unavailable
	GetByCheckoutID(ctx context.Context, checkoutID string) (*entity.Transaction, error)

	// ApplyTransition atomically persists a state change with a
	// compare-and-swap on (state, version) and appends the audit row in the
	// same store transaction. txn carries the new field values and the
	// version that was read; the repository bumps the version on success.
	//
	// Possible errors:
	// - ErrStateConflict: the row moved concurrently, nothing was written
	// - ErrTransactionNotFound: no such transaction
	// - ErrDatabaseConnection: store unavailable
	ApplyTransition(ctx context.Context, txn *entity.Transaction, from entity.State, tr entity.Transition) error

	// IncrementAttempts bumps the reconciliation attempt counter and returns
	// the new count. Does not touch state or last_transition_at.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// ListStalePending returns transactions in PENDING_CONFIRMATION whose
	// last transition is older than the cutoff, oldest first, at most limit.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Transaction, error)
}
