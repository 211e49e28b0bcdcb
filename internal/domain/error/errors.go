package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client / validation errors
	CodeInvalidPhone        = 4001
	CodeInvalidAmount       = 4002
	CodeAmountTooLarge      = 4003
	CodeInvalidReference    = 4004
	CodeCallbackInvalid     = 4010
	CodeCallbackRejected    = 4011
	CodeTransactionNotFound = 4040

	// 5xxx - Gateway / server errors
	CodeGatewayTransport = 5020
	CodeGatewayRejected  = 5021
	CodeStateConflict    = 5030
	CodeInternalServer   = 5000
)

// Base error types
var (
	// ErrInvalidPhone is returned when the payer phone number cannot be normalized
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidAmount is returned when the amount is not a positive whole number
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAmountTooLarge is returned when the amount exceeds the configured ceiling
	ErrAmountTooLarge = errors.New("amount exceeds allowed ceiling")

	// ErrInvalidReference is returned when the account reference or description is malformed
	ErrInvalidReference = errors.New("invalid account reference")

	// ErrGatewayTransport is returned for network or timeout failures talking to the provider
	ErrGatewayTransport = errors.New("gateway transport failure")

	// ErrGatewayRejected is returned when the provider accepted the call but rejected the request
	ErrGatewayRejected = errors.New("gateway rejected request")

	// ErrCallbackInvalid is returned when a webhook payload is malformed or unrecognizable
	ErrCallbackInvalid = errors.New("invalid callback payload")

	// ErrCallbackRejected is returned when a webhook fails the authenticity check
	ErrCallbackRejected = errors.New("callback failed authenticity check")

	// ErrTransactionNotFound is returned when no transaction matches the given identifier
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStateConflict is returned when a conditional state update lost a race
	ErrStateConflict = errors.New("transaction state changed concurrently")

	// ErrAlreadyTerminal is returned by strict transition paths when the row is already terminal
	ErrAlreadyTerminal = errors.New("transaction already in terminal state")

	// ErrDatabaseConnection is returned when there's a problem talking to the store
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPhone):
		return CodeInvalidPhone
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrAmountTooLarge):
		return CodeAmountTooLarge
	case errors.Is(err, ErrInvalidReference):
		return CodeInvalidReference
	case errors.Is(err, ErrCallbackInvalid):
		return CodeCallbackInvalid
	case errors.Is(err, ErrCallbackRejected):
		return CodeCallbackRejected
	case errors.Is(err, ErrGatewayTransport):
		return CodeGatewayTransport
	case errors.Is(err, ErrGatewayRejected):
		return CodeGatewayRejected
	case errors.Is(err, ErrStateConflict):
		return CodeStateConflict
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	default:
		return CodeInternalServer
	}
}

// Kind identifies which boundary of the payment core produced an error.
type Kind string

const (
	KindValidation            Kind = "VALIDATION"
	KindGatewayTransport      Kind = "GATEWAY_TRANSPORT"
	KindGatewayRejected       Kind = "GATEWAY_REJECTED"
	KindCallbackInvalid       Kind = "CALLBACK_INVALID"
	KindReconciliationTimeout Kind = "RECONCILIATION_TIMEOUT"
	KindInternal              Kind = "INTERNAL"
)

// KindOf maps an error to its boundary taxonomy entry.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountTooLarge),
		errors.Is(err, ErrInvalidReference):
		return KindValidation
	case errors.Is(err, ErrGatewayTransport):
		return KindGatewayTransport
	case errors.Is(err, ErrGatewayRejected):
		return KindGatewayRejected
	case errors.Is(err, ErrCallbackInvalid),
		errors.Is(err, ErrCallbackRejected):
		return KindCallbackInvalid
	default:
		return KindInternal
	}
}

// GatewayError carries the provider-side detail of a failed gateway call
type GatewayError struct {
	Operation  string // "initiate", "query", "token"
	StatusCode int    // HTTP status, 0 for transport failures
	Code       string // provider error code, if any
	Message    string
	Err        error
}

// Error implements the error interface for GatewayError
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed (status: %d, code: %s): %s",
		e.Operation, e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *GatewayError) LogFields() map[string]any {
	return map[string]any{
		"error_type":  "gateway_error",
		"operation":   e.Operation,
		"status_code": e.StatusCode,
		"code":        e.Code,
		"message":     e.Message,
		"error_code":  ErrorCode(e.Err),
	}
}

// NewGatewayTransportError wraps a network/timeout failure against the provider
func NewGatewayTransportError(operation string, err error) error {
	return &GatewayError{
		Operation: operation,
		Message:   err.Error(),
		Err:       fmt.Errorf("%w: %s", ErrGatewayTransport, err.Error()),
	}
}

// NewGatewayRejectedError wraps a provider-side business rejection
func NewGatewayRejectedError(operation string, statusCode int, code, message string) error {
	return &GatewayError{
		Operation:  operation,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Err:        fmt.Errorf("%w: %s", ErrGatewayRejected, message),
	}
}

// TransitionError describes a state-machine transition that could not be applied
type TransitionError struct {
	TransactionID string
	From          string
	To            string
	Err           error
}

// Error implements the error interface for TransitionError
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition transaction %s from %s to %s: %v",
		e.TransactionID, e.From, e.To, e.Err)
}

// Unwrap returns the underlying error
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *TransitionError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "transition_error",
		"transaction_id": e.TransactionID,
		"from_state":     e.From,
		"to_state":       e.To,
		"error":          e.Err.Error(),
	}
}

// NewTransitionError creates a detailed transition error
func NewTransitionError(transactionID, from, to string, err error) error {
	return &TransitionError{
		TransactionID: transactionID,
		From:          from,
		To:            to,
		Err:           err,
	}
}

// IsValidationError checks if the error was produced by input validation
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

// IsGatewayTransportError checks if the error is a transport failure against the provider
func IsGatewayTransportError(err error) bool {
	return errors.Is(err, ErrGatewayTransport)
}

// IsGatewayRejectedError checks if the provider rejected the request at business level
func IsGatewayRejectedError(err error) bool {
	return errors.Is(err, ErrGatewayRejected)
}

// IsStateConflictError checks if a conditional write lost a concurrent race
func IsStateConflictError(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsNotFoundError checks if the error is a missing-transaction error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}
