package payment

import (
	"context"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	gatewayport "github.com/mwangikim/nyumbapay/internal/domain/port/gateway"
)

// SweeperConfig controls the reconciliation loop. The thresholds are
// deployment configuration, not fixed behavior.
type SweeperConfig struct {
	// Interval between sweep passes
	Interval time.Duration
	// Staleness is how long a transaction may sit in PENDING_CONFIRMATION
	// before it is reconciled
	Staleness time.Duration
	// MaxAttempts is the number of status queries before a still-unresolved
	// transaction is expired
	MaxAttempts int
	// BatchLimit caps how many transactions one pass touches
	BatchLimit int
}

// Sweeper reconciles transactions whose provider callback never arrived.
// It drives the same Resolve path a callback would, so a late callback and a
// sweeper query racing on one transaction are serialized by the ledger and
// the loser observes a no-op.
type Sweeper struct {
	ledger       *Ledger
	gateway      gatewayport.PaymentGateway
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	cfg          SweeperConfig
}

// NewSweeper creates a new reconciliation sweeper
func NewSweeper(
	ledger *Ledger,
	gw gatewayport.PaymentGateway,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 100
	}
	return &Sweeper{
		ledger:       ledger,
		gateway:      gw,
		timeProvider: timeProvider,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run executes sweep passes on the configured interval until the context is
// canceled. Intended to run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Reconciliation sweeper started", map[string]any{
		"interval":     s.cfg.Interval.String(),
		"staleness":    s.cfg.Staleness.String(),
		"max_attempts": s.cfg.MaxAttempts,
	})

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation sweeper stopped", nil)
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Sweep pass failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}

// SweepOnce reconciles one batch of stale pending transactions and returns
// how many were examined. Also usable on-demand for a single transaction's
// tenant support path.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.timeProvider.Now().Add(-s.cfg.Staleness)
	stale, err := s.ledger.StalePending(ctx, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return 0, err
	}

	for _, txn := range stale {
		s.reconcile(ctx, txn)
	}
	return len(stale), nil
}

// reconcile queries the provider for one stuck transaction and applies the
// outcome. Failures here never abort the pass; the next interval retries.
func (s *Sweeper) reconcile(ctx context.Context, txn *entity.Transaction) {
	attempts, err := s.ledger.RecordAttempt(ctx, txn.ID)
	if err != nil {
		s.logger.Error("Failed to record reconciliation attempt", map[string]any{
			"transaction_id": txn.ID,
			"error":          err.Error(),
		})
		return
	}

	res, err := s.gateway.QueryStatus(ctx, txn.GatewayCheckoutID)
	switch {
	case err != nil:
		s.logger.Warn("Status query failed", map[string]any{
			"transaction_id": txn.ID,
			"checkout_id":    txn.GatewayCheckoutID,
			"attempt":        attempts,
			"error":          err.Error(),
		})
		s.expireIfExhausted(ctx, txn, attempts)

	case res.Pending:
		s.logger.Debug("Transaction still processing at provider", map[string]any{
			"transaction_id": txn.ID,
			"attempt":        attempts,
		})
		s.expireIfExhausted(ctx, txn, attempts)

	default:
		outcome := entity.Outcome{
			State:         entity.StateFailed,
			ResultCode:    res.ResultCode,
			ResultMessage: res.ResultMessage,
		}
		if res.ResultCode == errs.ResultCodeSuccess {
			outcome.State = entity.StateSucceeded
		}
		if _, err := s.ledger.Resolve(ctx, txn.GatewayCheckoutID, outcome, ActorSweeper); err != nil {
			s.logger.Error("Failed to resolve reconciled transaction", map[string]any{
				"transaction_id": txn.ID,
				"result_code":    res.ResultCode,
				"error":          err.Error(),
			})
		}
	}
}

// expireIfExhausted gives up on a transaction once the attempt budget is
// spent. The expired row records a RECONCILIATION_TIMEOUT outcome.
func (s *Sweeper) expireIfExhausted(ctx context.Context, txn *entity.Transaction, attempts int) {
	if attempts < s.cfg.MaxAttempts {
		return
	}
	if _, err := s.ledger.Expire(ctx, txn.ID); err != nil {
		s.logger.Error("Failed to expire transaction", map[string]any{
			"transaction_id": txn.ID,
			"error":          err.Error(),
		})
		return
	}
	s.logger.Warn("Transaction expired with no resolution", map[string]any{
		"transaction_id": txn.ID,
		"checkout_id":    txn.GatewayCheckoutID,
		"attempts":       attempts,
	})
}
