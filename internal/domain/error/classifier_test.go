package error

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyResultCode(t *testing.T) {
	testCases := []struct {
		name     string
		code     int
		expected Class
	}{
		{"Insufficient funds", ResultCodeInsufficientFunds, ClassUserActionable},
		{"User cancelled", ResultCodeUserCancelled, ClassUserActionable},
		{"Wrong PIN", ResultCodeInvalidInitiator, ClassUserActionable},
		{"Prompt timed out", ResultCodeDSTimeout, ClassUserActionable},
		{"Unable to lock subscriber", ResultCodeUnableToLock, ClassRetryable},
		{"Push expired", ResultCodePushExpired, ClassRetryable},
		{"Push send error", ResultCodePushSendError, ClassRetryable},
		{"Provider internal error", ResultCodeInternalError, ClassRetryable},
		{"Unknown code is fatal", 4242, ClassFatal},
		{"Success code is not in the map", ResultCodeSuccess, ClassFatal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyResultCode(tc.code))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, Class(""), ClassifyError(nil))
	assert.Equal(t, ClassRetryable, ClassifyError(NewGatewayTransportError("stk_push", errors.New("dial tcp: timeout"))))
	assert.Equal(t, ClassFatal, ClassifyError(NewGatewayRejectedError("stk_push", 403, "403.001", "invalid credentials")))
	assert.Equal(t, ClassFatal, ClassifyError(errors.New("anything else")))

	// Rejections with a numeric provider code fall back to the result-code class
	assert.Equal(t, ClassRetryable, ClassifyError(NewGatewayRejectedError("stk_push", 503, "1019", "push expired")))
	assert.Equal(t, ClassUserActionable, ClassifyError(NewGatewayRejectedError("stk_push", 400, "1", "insufficient balance")))
	assert.Equal(t, ClassFatal, ClassifyError(NewGatewayRejectedError("stk_query", 500, "500.003.03", "system busy")))
}

func TestUserMessage(t *testing.T) {
	generic := "payment could not be processed, please try again"

	assert.Equal(t, "The balance is insufficient for the transaction",
		UserMessage(ClassUserActionable, "The balance is insufficient for the transaction"))
	assert.Equal(t, generic, UserMessage(ClassUserActionable, ""))
	assert.Equal(t, generic, UserMessage(ClassRetryable, "internal detail"))
	assert.Equal(t, generic, UserMessage(ClassFatal, "internal detail"))
}
