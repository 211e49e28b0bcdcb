package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	gatewayport "github.com/mwangikim/nyumbapay/internal/domain/port/gateway"
)

// fakeClock is a deterministic TimeProvider for tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// nopLogger discards all log output
type nopLogger struct{}

func (nopLogger) SetLevel(_ coreport.LogLevel)     {}
func (nopLogger) Debug(_ string, _ map[string]any) {}
func (nopLogger) Info(_ string, _ map[string]any)  {}
func (nopLogger) Warn(_ string, _ map[string]any)  {}
func (nopLogger) Error(_ string, _ map[string]any) {}
func (nopLogger) Flush() error                     { return nil }

// memoryRepo is an in-memory LedgerRepository with the same
// compare-and-swap semantics as the database-backed one
type memoryRepo struct {
	mu          sync.Mutex
	rows        map[string]*entity.Transaction
	transitions []entity.Transition

	// forcedConflicts makes the next N ApplyTransition calls fail with
	// ErrStateConflict without touching the row
	forcedConflicts int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*entity.Transaction)}
}

func copyTxn(txn *entity.Transaction) *entity.Transaction {
	c := *txn
	if txn.ResultCode != nil {
		code := *txn.ResultCode
		c.ResultCode = &code
	}
	return &c
}

func (r *memoryRepo) Create(_ context.Context, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[txn.ID] = copyTxn(txn)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return copyTxn(row), nil
}

func (r *memoryRepo) GetByCheckoutID(_ context.Context, checkoutID string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.GatewayCheckoutID == checkoutID {
			return copyTxn(row), nil
		}
	}
	return nil, errs.ErrTransactionNotFound
}

func (r *memoryRepo) ApplyTransition(_ context.Context, txn *entity.Transaction, from entity.State, tr entity.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forcedConflicts > 0 {
		r.forcedConflicts--
		return errs.ErrStateConflict
	}

	row, ok := r.rows[txn.ID]
	if !ok {
		return errs.ErrTransactionNotFound
	}
	if row.State != from || row.Version != txn.Version {
		return errs.ErrStateConflict
	}

	updated := copyTxn(txn)
	updated.Version = row.Version + 1
	updated.AttemptCount = row.AttemptCount
	r.rows[txn.ID] = updated
	r.transitions = append(r.transitions, tr)

	txn.Version++
	return nil
}

func (r *memoryRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return 0, errs.ErrTransactionNotFound
	}
	row.AttemptCount++
	return row.AttemptCount, nil
}

func (r *memoryRepo) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*entity.Transaction
	for _, row := range r.rows {
		if row.State == entity.StatePendingConfirmation && row.LastTransitionAt.Before(cutoff) {
			stale = append(stale, copyTxn(row))
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastTransitionAt.Before(stale[j].LastTransitionAt)
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (r *memoryRepo) transitionsFor(id string) []entity.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Transition
	for _, tr := range r.transitions {
		if tr.TransactionID == id {
			out = append(out, tr)
		}
	}
	return out
}

// fakeGateway returns canned answers for Initiate and QueryStatus
type fakeGateway struct {
	mu          sync.Mutex
	initiateFn  func(req entity.PaymentRequest) (*gatewayport.InitiationResult, error)
	queryFn     func(checkoutID string) (*gatewayport.QueryResult, error)
	queryCalls  int
}

func (g *fakeGateway) Initiate(_ context.Context, req entity.PaymentRequest) (*gatewayport.InitiationResult, error) {
	return g.initiateFn(req)
}

func (g *fakeGateway) QueryStatus(_ context.Context, checkoutID string) (*gatewayport.QueryResult, error) {
	g.mu.Lock()
	g.queryCalls++
	g.mu.Unlock()
	return g.queryFn(checkoutID)
}
