package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	paymentUseCase "github.com/mwangikim/nyumbapay/internal/domain/usecase/payment"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/handler"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/api/routes"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/database"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/logger"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/mpesa"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/repository"
	timeProvider "github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/time"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/config"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create logger
	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	defer func() { _ = appLogger.Flush() }()

	// Initialize time provider
	tp := timeProvider.NewRealTimeProvider()

	// Connect to the database
	dbConfig := database.NewConfig(cfg.Database, cfg.Logger.Level)
	conn, err := database.NewConnection(context.Background(), dbConfig, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	// Run migrations
	if err := conn.Migrate(context.Background()); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Initialize the ledger
	ledgerRepo := repository.NewLedgerRepository(conn.DB, appLogger)
	ledger := paymentUseCase.NewLedger(ledgerRepo, tp, appLogger)

	// Initialize the gateway client with a cached token source
	httpClient := &http.Client{Timeout: cfg.Mpesa.RequestTimeout}
	tokens := mpesa.NewCachedTokenSource(
		httpClient,
		cfg.Mpesa.BaseURL,
		cfg.Mpesa.ConsumerKey,
		cfg.Mpesa.ConsumerSecret,
		cfg.Mpesa.TokenSlack,
		tp,
		appLogger,
	)
	gatewayClient := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		RequestTimeout: cfg.Mpesa.RequestTimeout,
	}, httpClient, tokens, tp, appLogger)

	// Initialize use cases
	paymentService := paymentUseCase.NewService(ledger, gatewayClient, appLogger, cfg.Payment.AmountCeiling)
	callbackReceiver := paymentUseCase.NewCallbackReceiver(ledger, appLogger, cfg.Mpesa.CallbackSecret)
	sweeper := paymentUseCase.NewSweeper(ledger, gatewayClient, tp, appLogger, paymentUseCase.SweeperConfig{
		Interval:    cfg.Payment.SweepInterval,
		Staleness:   cfg.Payment.PendingTimeout,
		MaxAttempts: cfg.Payment.MaxQueryAttempts,
		BatchLimit:  cfg.Payment.SweepBatchLimit,
	})

	// Initialize API handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, appLogger)
	callbackHandler := handler.NewCallbackHandler(callbackReceiver, appLogger)

	// Initialize Gin router
	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, paymentHandler, callbackHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start the reconciliation sweeper in the background
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(sweepCtx)
	}()

	// Start the server in a goroutine
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"port": cfg.Server.Port,
			"env":  cfg.Environment,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the sweeper before closing the database
	stopSweeper()
	select {
	case <-sweeperDone:
	case <-ctx.Done():
		appLogger.Warn("Sweeper did not stop before shutdown deadline", nil)
	}

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
	}

	appLogger.Info("Server exited gracefully", nil)
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missingConfigs []string

	if cfg.Server.Port == 0 {
		missingConfigs = append(missingConfigs, "server.port")
	}
	if cfg.Server.ReadTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.readTimeout")
	}
	if cfg.Server.WriteTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.writeTimeout")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.shutdownTimeout")
	}

	if cfg.Database.Host == "" {
		missingConfigs = append(missingConfigs, "database.host (or NP_DB_HOST environment variable)")
	}
	if cfg.Database.Port == "" {
		missingConfigs = append(missingConfigs, "database.port (or NP_DB_PORT environment variable)")
	}
	if cfg.Database.Username == "" {
		missingConfigs = append(missingConfigs, "database.username (or NP_DB_USERNAME environment variable)")
	}
	if cfg.Database.Password == "" {
		missingConfigs = append(missingConfigs, "database.password (or NP_DB_PASSWORD environment variable)")
	}
	if cfg.Database.Database == "" {
		missingConfigs = append(missingConfigs, "database.database (or NP_DB_NAME environment variable)")
	}
	if cfg.Database.QueryTimeout == 0 {
		missingConfigs = append(missingConfigs, "database.queryTimeout")
	}

	if cfg.Mpesa.BaseURL == "" {
		missingConfigs = append(missingConfigs, "mpesa.baseUrl")
	}
	if cfg.Mpesa.ShortCode == "" {
		missingConfigs = append(missingConfigs, "mpesa.shortCode (or NP_MPESA_SHORT_CODE environment variable)")
	}
	if cfg.Mpesa.Passkey == "" {
		missingConfigs = append(missingConfigs, "mpesa.passkey (or NP_MPESA_PASSKEY environment variable)")
	}
	if cfg.Mpesa.ConsumerKey == "" {
		missingConfigs = append(missingConfigs, "mpesa.consumerKey (or NP_MPESA_CONSUMER_KEY environment variable)")
	}
	if cfg.Mpesa.ConsumerSecret == "" {
		missingConfigs = append(missingConfigs, "mpesa.consumerSecret (or NP_MPESA_CONSUMER_SECRET environment variable)")
	}
	if cfg.Mpesa.CallbackURL == "" {
		missingConfigs = append(missingConfigs, "mpesa.callbackUrl (or NP_MPESA_CALLBACK_URL environment variable)")
	}

	if cfg.Payment.AmountCeiling <= 0 {
		missingConfigs = append(missingConfigs, "payment.amountCeiling")
	}
	if cfg.Payment.PendingTimeout == 0 {
		missingConfigs = append(missingConfigs, "payment.pendingTimeout")
	}
	if cfg.Payment.SweepInterval == 0 {
		missingConfigs = append(missingConfigs, "payment.sweepInterval")
	}
	if cfg.Payment.MaxQueryAttempts == 0 {
		missingConfigs = append(missingConfigs, "payment.maxQueryAttempts")
	}

	if cfg.Environment == "" {
		missingConfigs = append(missingConfigs, "environment")
	} else if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if cfg.Logger.Level == "" {
		missingConfigs = append(missingConfigs, "logger.level")
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configurations: %v", missingConfigs)
	}

	if cfg.Environment == config.Production {
		var warnings []string

		if strings.ToLower(cfg.Database.SSLMode) == "disable" {
			warnings = append(warnings, "database.sslMode should not be 'disable' in production")
		}
		if cfg.Mpesa.CallbackSecret == "" {
			warnings = append(warnings, "mpesa.callbackSecret is empty, webhook deliveries are unauthenticated")
		}
		if cfg.Server.ReadTimeout < 5*time.Second {
			warnings = append(warnings, "server.readTimeout is too low for production")
		}

		if len(warnings) > 0 {
			log.Printf("Warning: potential security issues in production configuration: %v", warnings)
		}
	}

	return nil
}
