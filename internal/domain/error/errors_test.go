package error

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"InvalidPhone", ErrInvalidPhone, 4001},
		{"InvalidAmount", ErrInvalidAmount, 4002},
		{"AmountTooLarge", ErrAmountTooLarge, 4003},
		{"InvalidReference", ErrInvalidReference, 4004},
		{"CallbackInvalid", ErrCallbackInvalid, 4010},
		{"CallbackRejected", ErrCallbackRejected, 4011},
		{"TransactionNotFound", ErrTransactionNotFound, 4040},
		{"GatewayTransport", ErrGatewayTransport, 5020},
		{"GatewayRejected", ErrGatewayRejected, 5021},
		{"StateConflict", ErrStateConflict, 5030},
		{"UnknownError", errors.New("unknown error"), 5000},
		{"WrappedError", fmt.Errorf("wrapped: %w", ErrInvalidPhone), 4001},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code := ErrorCode(tc.err)
			if code != tc.expected {
				t.Errorf("ErrorCode(%v) = %d, want %d", tc.err, code, tc.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"Phone validation", ErrInvalidPhone, KindValidation},
		{"Amount validation", ErrAmountTooLarge, KindValidation},
		{"Transport", NewGatewayTransportError("stk_push", errors.New("timeout")), KindGatewayTransport},
		{"Rejection", NewGatewayRejectedError("stk_push", 400, "1", "bad"), KindGatewayRejected},
		{"Malformed callback", ErrCallbackInvalid, KindCallbackInvalid},
		{"Unauthenticated callback", ErrCallbackRejected, KindCallbackInvalid},
		{"Everything else", errors.New("boom"), KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.expected {
				t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.expected)
			}
		})
	}
}

func TestGatewayError(t *testing.T) {
	err := NewGatewayRejectedError("stk_push", 400, "400.002.02", "Bad Request - Invalid Amount")

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *GatewayError, got %T", err)
	}
	if gwErr.StatusCode != 400 || gwErr.Code != "400.002.02" {
		t.Errorf("unexpected fields: %+v", gwErr)
	}
	if !errors.Is(err, ErrGatewayRejected) {
		t.Error("rejection should unwrap to ErrGatewayRejected")
	}
	if errors.Is(err, ErrGatewayTransport) {
		t.Error("rejection must not match ErrGatewayTransport")
	}

	fields := gwErr.LogFields()
	if fields["operation"] != "stk_push" {
		t.Errorf("LogFields operation = %v", fields["operation"])
	}
}

func TestTransitionError(t *testing.T) {
	err := NewTransitionError("txn-1", "SUCCEEDED", "FAILED", ErrStateConflict)

	if !errors.Is(err, ErrStateConflict) {
		t.Error("transition error should unwrap to its cause")
	}

	var trErr *TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if trErr.From != "SUCCEEDED" || trErr.To != "FAILED" {
		t.Errorf("unexpected fields: %+v", trErr)
	}
}
