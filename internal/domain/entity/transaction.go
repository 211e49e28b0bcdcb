package entity

import (
	"time"

	"github.com/google/uuid"

	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
)

// State represents the lifecycle state of a payment transaction
type State string

// Transaction states. Transitions only move forward; terminal states are
// immutable.
const (
	StateCreated             State = "CREATED"
	StateSent                State = "SENT"
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateSucceeded           State = "SUCCEEDED"
	StateFailed              State = "FAILED"
	StateExpired             State = "EXPIRED"
)

// transitions encodes the forward-only state table. Terminal states have no
// out-edges.
var transitions = map[State][]State{
	StateCreated:             {StateSent, StateFailed},
	StateSent:                {StatePendingConfirmation, StateSucceeded, StateFailed},
	StatePendingConfirmation: {StateSucceeded, StateFailed, StateExpired},
	StateSucceeded:           {},
	StateFailed:              {},
	StateExpired:             {},
}

// CanTransition reports whether moving from one state to another is allowed
func CanTransition(from, to State) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateExpired
}

// IsValidState reports whether the string names a known state
func IsValidState(s string) bool {
	_, ok := transitions[State(s)]
	return ok
}

// PaymentRequest is the validated input for a push-payment initiation.
// It is not persisted; the Ledger derives a Transaction from it.
type PaymentRequest struct {
	Phone            string // canonical 254XXXXXXXXX form
	Amount           int64  // whole currency units
	AccountReference string // opaque grouping key, <= 50 chars
	Description      string // <= 100 chars, forwarded to the provider
	TenantID         string // from the authenticated caller, trusted
	EntityID         string // originating property/unit or fee id
}

// Reference length limits enforced before any gateway call
const (
	MaxAccountReferenceLen = 50
	MaxDescriptionLen      = 100
)

// Validate checks the request fields that are not covered by phone/amount
// normalization
func (r PaymentRequest) Validate() error {
	if r.AccountReference == "" || len(r.AccountReference) > MaxAccountReferenceLen {
		return errs.ErrInvalidReference
	}
	if len(r.Description) > MaxDescriptionLen {
		return errs.ErrInvalidReference
	}
	return nil
}

// Transaction is the authoritative record of a single payment attempt.
// Amount, Phone and the ownership fields are immutable after creation;
// GatewayCheckoutID is immutable once set. Rows are never deleted.
type Transaction struct {
	ID               string
	TenantID         string
	AccountReference string
	EntityID         string

	GatewayCheckoutID string // empty until initiation is acknowledged
	Phone             string
	Amount            int64

	State           State
	ResultCode      *int   // set only on terminal transition
	ResultMessage   string // set only on terminal transition
	ProviderReceipt string // set only on SUCCEEDED

	AttemptCount     int // reconciliation queries, not callbacks
	CreatedAt        time.Time
	LastTransitionAt time.Time

	// Version is the optimistic-lock column the repository CAS compares on
	Version int64
}

// NewTransaction creates a CREATED transaction from a validated request
func NewTransaction(req PaymentRequest, now time.Time) *Transaction {
	return &Transaction{
		ID:               uuid.NewString(),
		TenantID:         req.TenantID,
		AccountReference: req.AccountReference,
		EntityID:         req.EntityID,
		Phone:            req.Phone,
		Amount:           req.Amount,
		State:            StateCreated,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
}

// Outcome is the terminal result a callback or reconciliation query resolved
type Outcome struct {
	State           State // StateSucceeded or StateFailed
	ResultCode      int
	ResultMessage   string
	ProviderReceipt string // success only
}

// Transition is one row of the append-only audit log of state changes
type Transition struct {
	ID            uint64
	TransactionID string
	FromState     State
	ToState       State
	ResultCode    *int
	Actor         string // "initiator", "callback", "sweeper"
	OccurredAt    time.Time
}
