package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	paymentUseCase "github.com/mwangikim/nyumbapay/internal/domain/usecase/payment"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/dto"
)

// CallbackHandler handles the provider's webhook deliveries
type CallbackHandler struct {
	receiver *paymentUseCase.CallbackReceiver
	logger   coreport.Logger
}

// NewCallbackHandler creates a new callback handler instance
func NewCallbackHandler(receiver *paymentUseCase.CallbackReceiver, logger coreport.Logger) *CallbackHandler {
	return &CallbackHandler{
		receiver: receiver,
		logger:   logger,
	}
}

// HandleCallback handles the POST /payments/callback endpoint.
//
// Authenticated deliveries are always acknowledged with 200 so the provider
// does not retry: a malformed payload or an unknown checkout id changes
// nothing in the ledger and retrying would not help. Only an authenticity
// failure is refused.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	if err := h.receiver.Authenticate(c.GetHeader("X-Callback-Token")); err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: "Unauthorized",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("Failed to read callback body", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusOK, dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
		return
	}

	result, err := h.receiver.Handle(c.Request.Context(), body)
	if err != nil {
		// Already logged by the receiver with full detail
		c.JSON(http.StatusOK, dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
		return
	}

	if result.Duplicate {
		h.logger.Info("Duplicate callback absorbed", map[string]any{
			"transaction_id": result.TransactionID,
			"checkout_id":    result.CheckoutID,
		})
	}

	c.JSON(http.StatusOK, dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}
