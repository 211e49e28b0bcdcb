package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
)

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"Created to Sent", StateCreated, StateSent, true},
		{"Created to Failed", StateCreated, StateFailed, true},
		{"Created to Succeeded", StateCreated, StateSucceeded, false},
		{"Created to Expired", StateCreated, StateExpired, false},
		{"Sent to Pending", StateSent, StatePendingConfirmation, true},
		{"Sent to Succeeded", StateSent, StateSucceeded, true},
		{"Sent to Failed", StateSent, StateFailed, true},
		{"Sent to Expired", StateSent, StateExpired, false},
		{"Pending to Succeeded", StatePendingConfirmation, StateSucceeded, true},
		{"Pending to Failed", StatePendingConfirmation, StateFailed, true},
		{"Pending to Expired", StatePendingConfirmation, StateExpired, true},
		{"Pending to Sent", StatePendingConfirmation, StateSent, false},
		{"Succeeded is terminal", StateSucceeded, StateFailed, false},
		{"Failed is terminal", StateFailed, StateSucceeded, false},
		{"Expired is terminal", StateExpired, StateSucceeded, false},
		{"Unknown state", State("BOGUS"), StateSent, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	assert.False(t, StateCreated.IsTerminal())
	assert.False(t, StateSent.IsTerminal())
	assert.False(t, StatePendingConfirmation.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateExpired.IsTerminal())
}

func TestNewTransaction(t *testing.T) {
	fixedTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	req := PaymentRequest{
		Phone:            "254712345678",
		Amount:           1500,
		AccountReference: "UNIT-4B",
		Description:      "June rent",
		TenantID:         "tenant-1",
		EntityID:         "unit-4b",
	}

	tx := NewTransaction(req, fixedTime)

	require.NotEmpty(t, tx.ID)
	assert.Equal(t, "tenant-1", tx.TenantID)
	assert.Equal(t, "UNIT-4B", tx.AccountReference)
	assert.Equal(t, "unit-4b", tx.EntityID)
	assert.Equal(t, "254712345678", tx.Phone)
	assert.Equal(t, int64(1500), tx.Amount)
	assert.Equal(t, StateCreated, tx.State)
	assert.Empty(t, tx.GatewayCheckoutID)
	assert.Nil(t, tx.ResultCode)
	assert.Equal(t, fixedTime, tx.CreatedAt)
	assert.Equal(t, fixedTime, tx.LastTransitionAt)
	assert.Equal(t, int64(0), tx.Version)

	// Each transaction gets its own id
	other := NewTransaction(req, fixedTime)
	assert.NotEqual(t, tx.ID, other.ID)
}

func TestPaymentRequestValidate(t *testing.T) {
	valid := PaymentRequest{
		Phone:            "254712345678",
		Amount:           100,
		AccountReference: "REF-1",
	}
	assert.NoError(t, valid.Validate())

	t.Run("Empty reference", func(t *testing.T) {
		req := valid
		req.AccountReference = ""
		assert.ErrorIs(t, req.Validate(), errs.ErrInvalidReference)
	})

	t.Run("Reference too long", func(t *testing.T) {
		req := valid
		req.AccountReference = strings.Repeat("x", MaxAccountReferenceLen+1)
		assert.ErrorIs(t, req.Validate(), errs.ErrInvalidReference)
	})

	t.Run("Description too long", func(t *testing.T) {
		req := valid
		req.Description = strings.Repeat("x", MaxDescriptionLen+1)
		assert.ErrorIs(t, req.Validate(), errs.ErrInvalidReference)
	})

	t.Run("Description at limit", func(t *testing.T) {
		req := valid
		req.Description = strings.Repeat("x", MaxDescriptionLen)
		assert.NoError(t, req.Validate())
	})
}
