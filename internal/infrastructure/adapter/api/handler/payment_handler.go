package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	paymentUseCase "github.com/mwangikim/nyumbapay/internal/domain/usecase/payment"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/dto"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService *paymentUseCase.Service
	logger         coreport.Logger
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(paymentService *paymentUseCase.Service, logger coreport.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// InitiatePayment handles the POST /payments endpoint
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	// Tenant identity comes from the upstream auth layer, which this
	// service trusts
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.CodeInvalidReference,
			Message: "Missing required header: X-Tenant-ID",
		})
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid payment request format", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.CodeInvalidReference,
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), paymentUseCase.InitiationRequest{
		Phone:            req.Phone,
		Amount:           req.Amount,
		AccountReference: req.AccountReference,
		Description:      req.Description,
		TenantID:         tenantID,
		EntityID:         req.EntityID,
	})
	if err != nil {
		c.JSON(initiationStatus(err), dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.PaymentResponse{
		TransactionID:   result.TransactionID,
		CheckoutID:      result.CheckoutID,
		CustomerMessage: result.CustomerMessage,
	})
}

// GetStatus handles the GET /payments/:id endpoint
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")

	result, err := h.paymentService.Status(c.Request.Context(), id)
	if err != nil {
		if domainerr.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Code:    domainerr.CodeTransactionNotFound,
				Message: "Transaction not found",
			})
			return
		}
		h.logger.Error("Error looking up transaction status", map[string]any{
			"transaction_id": id,
			"error":          err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.CodeInternalServer,
			Message: "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		TransactionID:   result.TransactionID,
		State:           string(result.State),
		ResultCode:      result.ResultCode,
		ResultMessage:   result.ResultMessage,
		ProviderReceipt: result.ProviderReceipt,
		Retryable:       result.Retryable,
	})
}

// initiationStatus maps an initiation error to the HTTP status code
func initiationStatus(err error) int {
	switch {
	case domainerr.IsValidationError(err):
		return http.StatusBadRequest
	case domainerr.IsGatewayRejectedError(err):
		return http.StatusBadGateway
	case domainerr.IsGatewayTransportError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
