package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/handler"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	callbackHandler *handler.CallbackHandler,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	paymentRoutes := router.Group("/payments")
	{
		// POST /payments
		paymentRoutes.POST("", paymentHandler.InitiatePayment)

		// POST /payments/callback, registered before :id so the provider's
		// deliveries never match the status route
		paymentRoutes.POST("/callback", callbackHandler.HandleCallback)

		// GET /payments/:id
		paymentRoutes.GET("/:id", paymentHandler.GetStatus)
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
}
