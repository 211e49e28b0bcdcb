package error

import (
	"errors"
	"strconv"
)

// Class is the retry taxonomy applied to provider result codes.
type Class string

const (
	// ClassRetryable means the caller may initiate a fresh transaction attempt.
	// The same checkout id is never retried.
	ClassRetryable Class = "RETRYABLE"
	// ClassUserActionable means the end user must act (top up, retry the PIN,
	// stop cancelling the prompt); the provider message is surfaced verbatim.
	ClassUserActionable Class = "USER_ACTIONABLE"
	// ClassFatal means operator attention is required; never retried.
	ClassFatal Class = "FATAL"
)

// Provider result codes for the STK push flow. Zero is success; everything
// else terminates the transaction as FAILED, the class only decides what the
// caller is told.
const (
	ResultCodeSuccess           = 0
	ResultCodeInsufficientFunds = 1
	ResultCodeUnableToLock      = 1001
	ResultCodePushExpired       = 1019
	ResultCodePushSendError     = 1025
	ResultCodeUserCancelled     = 1032
	ResultCodeDSTimeout         = 1037
	ResultCodeInvalidInitiator  = 2001
	ResultCodeInternalError     = 9999
)

var resultClasses = map[int]Class{
	ResultCodeInsufficientFunds: ClassUserActionable,
	ResultCodeUserCancelled:     ClassUserActionable,
	ResultCodeInvalidInitiator:  ClassUserActionable,
	ResultCodeDSTimeout:         ClassUserActionable,

	ResultCodeUnableToLock:  ClassRetryable,
	ResultCodePushExpired:   ClassRetryable,
	ResultCodePushSendError: ClassRetryable,
	ResultCodeInternalError: ClassRetryable,
}

// ClassifyResultCode maps a provider result code to the retry taxonomy.
// Unknown codes are treated as FATAL so that new provider failures surface
// to operators instead of being silently retried.
func ClassifyResultCode(code int) Class {
	if class, ok := resultClasses[code]; ok {
		return class
	}
	return ClassFatal
}

// ClassifyError maps a classified gateway error to the retry taxonomy.
// Transport failures are always retryable; provider rejections fall back to
// their result-code class when one is attached, FATAL otherwise.
func ClassifyError(err error) Class {
	switch {
	case err == nil:
		return ""
	case IsGatewayTransportError(err):
		return ClassRetryable
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if code, convErr := strconv.Atoi(gwErr.Code); convErr == nil {
			return ClassifyResultCode(code)
		}
	}
	return ClassFatal
}

// UserMessage applies the disclosure policy: USER_ACTIONABLE failures carry
// the provider's own message, everything else gets a generic one.
func UserMessage(class Class, providerMessage string) string {
	if class == ClassUserActionable && providerMessage != "" {
		return providerMessage
	}
	return "payment could not be processed, please try again"
}
