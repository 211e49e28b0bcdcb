package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	gatewayport "github.com/mwangikim/nyumbapay/internal/domain/port/gateway"
)

type sweeperHarness struct {
	sweeper *Sweeper
	ledger  *Ledger
	gateway *fakeGateway
	clock   *fakeClock
}

func newSweeperHarness(t *testing.T, gw *fakeGateway, cfg SweeperConfig) *sweeperHarness {
	t.Helper()
	repo := newMemoryRepo()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ledger := NewLedger(repo, clock, nopLogger{})
	return &sweeperHarness{
		sweeper: NewSweeper(ledger, gw, clock, nopLogger{}, cfg),
		ledger:  ledger,
		gateway: gw,
		clock:   clock,
	}
}

func defaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    30 * time.Second,
		Staleness:   2 * time.Minute,
		MaxAttempts: 3,
		BatchLimit:  100,
	}
}

func TestSweeperResolvesDefinitiveOutcome(t *testing.T) {
	testCases := []struct {
		name      string
		result    gatewayport.QueryResult
		wantState entity.State
	}{
		{
			name:      "Provider reports success",
			result:    gatewayport.QueryResult{ResultCode: 0, ResultMessage: "The service request is processed successfully."},
			wantState: entity.StateSucceeded,
		},
		{
			name:      "Provider reports cancellation",
			result:    gatewayport.QueryResult{ResultCode: 1032, ResultMessage: "Request cancelled by user"},
			wantState: entity.StateFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{
				queryFn: func(_ string) (*gatewayport.QueryResult, error) {
					res := tc.result
					return &res, nil
				},
			}
			h := newSweeperHarness(t, gw, defaultSweeperConfig())
			txn := pendingTransaction(t, h.ledger, "ws_CO_sweep")
			h.clock.Advance(5 * time.Minute)

			examined, err := h.sweeper.SweepOnce(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, examined)

			stored, err := h.ledger.Get(context.Background(), txn.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantState, stored.State)
			require.NotNil(t, stored.ResultCode)
			assert.Equal(t, tc.result.ResultCode, *stored.ResultCode)
			assert.Equal(t, tc.result.ResultMessage, stored.ResultMessage)
			assert.Equal(t, 1, stored.AttemptCount)
		})
	}
}

func TestSweeperExpiresAfterAttemptBudget(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ string) (*gatewayport.QueryResult, error) {
			return &gatewayport.QueryResult{Pending: true}, nil
		},
	}
	h := newSweeperHarness(t, gw, defaultSweeperConfig())
	txn := pendingTransaction(t, h.ledger, "ws_CO_stuck")
	h.clock.Advance(5 * time.Minute)

	ctx := context.Background()
	for pass := 1; pass <= 2; pass++ {
		_, err := h.sweeper.SweepOnce(ctx)
		require.NoError(t, err)

		stored, err := h.ledger.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatePendingConfirmation, stored.State, "pass %d", pass)
		assert.Equal(t, pass, stored.AttemptCount)
	}

	// Third pass spends the budget
	_, err := h.sweeper.SweepOnce(ctx)
	require.NoError(t, err)

	stored, err := h.ledger.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateExpired, stored.State)
	assert.Equal(t, 3, stored.AttemptCount)
	assert.Equal(t, 3, gw.queryCalls)

	// An expired row leaves the sweep set for good
	examined, err := h.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, examined)
}

func TestSweeperQueryErrorsCountTowardExpiry(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ string) (*gatewayport.QueryResult, error) {
			return nil, errs.NewGatewayTransportError("stk_query", context.DeadlineExceeded)
		},
	}
	cfg := defaultSweeperConfig()
	cfg.MaxAttempts = 1
	h := newSweeperHarness(t, gw, cfg)
	txn := pendingTransaction(t, h.ledger, "ws_CO_err")
	h.clock.Advance(5 * time.Minute)

	_, err := h.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)

	stored, err := h.ledger.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateExpired, stored.State)
}

func TestSweeperIgnoresFreshPending(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ string) (*gatewayport.QueryResult, error) {
			return &gatewayport.QueryResult{ResultCode: 0}, nil
		},
	}
	h := newSweeperHarness(t, gw, defaultSweeperConfig())
	txn := pendingTransaction(t, h.ledger, "ws_CO_fresh")

	examined, err := h.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, examined)
	assert.Equal(t, 0, gw.queryCalls)

	stored, err := h.ledger.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatePendingConfirmation, stored.State)
	assert.Equal(t, 0, stored.AttemptCount)
}

func TestSweeperHonorsBatchLimit(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ string) (*gatewayport.QueryResult, error) {
			return &gatewayport.QueryResult{ResultCode: 0}, nil
		},
	}
	cfg := defaultSweeperConfig()
	cfg.BatchLimit = 2
	h := newSweeperHarness(t, gw, cfg)
	for i := 0; i < 3; i++ {
		pendingTransaction(t, h.ledger, fmt.Sprintf("ws_CO_batch_%d", i))
	}
	h.clock.Advance(5 * time.Minute)

	examined, err := h.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, examined)

	// The next pass picks up the remainder
	examined, err = h.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, examined)
}
