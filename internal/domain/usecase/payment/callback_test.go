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
)

func successPayload(checkoutID string, amount int64, receipt string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": %q,
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": %d},
						{"Name": "MpesaReceiptNumber", "Value": %q},
						{"Name": "TransactionDate", "Value": 20250601121530},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`, checkoutID, amount, receipt))
}

func failurePayload(checkoutID string, code int, desc string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": %q,
				"ResultCode": %d,
				"ResultDesc": %q
			}
		}
	}`, checkoutID, code, desc))
}

func newTestReceiver(t *testing.T, secret string) (*CallbackReceiver, *Ledger, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ledger := NewLedger(repo, clock, nopLogger{})
	return NewCallbackReceiver(ledger, nopLogger{}, secret), ledger, repo
}

func TestCallbackSuccess(t *testing.T) {
	receiver, ledger, _ := newTestReceiver(t, "")
	txn := pendingTransaction(t, ledger, "ws_CO_cb1")

	result, err := receiver.Handle(context.Background(), successPayload("ws_CO_cb1", 1500, "NLJ7RT61SV"))
	require.NoError(t, err)
	assert.Equal(t, txn.ID, result.TransactionID)
	assert.Equal(t, entity.StateSucceeded, result.State)
	assert.False(t, result.Duplicate)

	stored, err := ledger.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSucceeded, stored.State)
	assert.Equal(t, "NLJ7RT61SV", stored.ProviderReceipt)
	require.NotNil(t, stored.ResultCode)
	assert.Equal(t, 0, *stored.ResultCode)
}

func TestCallbackFailure(t *testing.T) {
	receiver, ledger, _ := newTestReceiver(t, "")
	txn := pendingTransaction(t, ledger, "ws_CO_cb2")

	result, err := receiver.Handle(context.Background(), failurePayload("ws_CO_cb2", 1032, "Request cancelled by user"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, result.State)
	assert.Equal(t, errs.ClassUserActionable, result.Class)

	stored, err := ledger.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, stored.State)
	require.NotNil(t, stored.ResultCode)
	assert.Equal(t, 1032, *stored.ResultCode)
	assert.Equal(t, "Request cancelled by user", stored.ResultMessage)
	assert.Empty(t, stored.ProviderReceipt)
}

func TestCallbackDuplicateDelivery(t *testing.T) {
	receiver, ledger, repo := newTestReceiver(t, "")
	txn := pendingTransaction(t, ledger, "ws_CO_cb3")

	payload := successPayload("ws_CO_cb3", 1500, "NLJ7RT61SV")

	first, err := receiver.Handle(context.Background(), payload)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := receiver.Handle(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, entity.StateSucceeded, second.State)

	// The duplicate changed nothing
	terminal := 0
	for _, tr := range repo.transitionsFor(txn.ID) {
		if tr.ToState.IsTerminal() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestCallbackMalformedPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"Not JSON", `{{{`},
		{"Empty object", `{}`},
		{"Missing stkCallback", `{"Body": {}}`},
		{"Missing checkout id", `{"Body": {"stkCallback": {"ResultCode": 0}}}`},
		{"Missing result code", `{"Body": {"stkCallback": {"CheckoutRequestID": "ws_CO_x"}}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			receiver, ledger, _ := newTestReceiver(t, "")
			txn := pendingTransaction(t, ledger, "ws_CO_mal")

			result, err := receiver.Handle(context.Background(), []byte(tc.payload))
			assert.ErrorIs(t, err, errs.ErrCallbackInvalid)
			assert.Nil(t, result)

			// The ledger was not touched
			stored, err := ledger.Get(context.Background(), txn.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.StatePendingConfirmation, stored.State)
		})
	}
}

func TestCallbackZeroResultCodeIsNotMissing(t *testing.T) {
	// ResultCode 0 must parse as success, not as an absent field
	receiver, ledger, _ := newTestReceiver(t, "")
	pendingTransaction(t, ledger, "ws_CO_zero")

	result, err := receiver.Handle(context.Background(), failurePayload("ws_CO_zero", 0, "ok"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateSucceeded, result.State)
}

func TestCallbackUnknownCheckoutID(t *testing.T) {
	receiver, _, _ := newTestReceiver(t, "")

	result, err := receiver.Handle(context.Background(), failurePayload("ws_CO_ghost", 1032, "cancelled"))
	assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	assert.Nil(t, result)
}

func TestCallbackAuthenticate(t *testing.T) {
	t.Run("Secret configured", func(t *testing.T) {
		receiver, _, _ := newTestReceiver(t, "shared-secret")
		assert.NoError(t, receiver.Authenticate("shared-secret"))
		assert.ErrorIs(t, receiver.Authenticate("wrong"), errs.ErrCallbackRejected)
		assert.ErrorIs(t, receiver.Authenticate(""), errs.ErrCallbackRejected)
	})

	t.Run("No secret disables the check", func(t *testing.T) {
		receiver, _, _ := newTestReceiver(t, "")
		assert.NoError(t, receiver.Authenticate("anything"))
	})
}
