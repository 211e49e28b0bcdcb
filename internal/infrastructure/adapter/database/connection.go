package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/model"
)

// Connection holds the database connection and configuration
type Connection struct {
	DB     *gorm.DB
	Config *Config
}

// NewConnection establishes a new database connection, retrying transient
// failures during startup
func NewConnection(ctx context.Context, config *Config, coreLogger coreport.Logger) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: NewDatabaseLogger(coreLogger, config.LogLevel),
	}

	retryConfig := DefaultRetryConfig()
	if config.RetryAttempts > 0 {
		retryConfig.MaxRetries = config.RetryAttempts
	}
	if config.RetryDelay > 0 {
		retryConfig.RetryInterval = config.RetryDelay
	}

	var db *gorm.DB
	err := RetryOnTransientError(ctx, retryConfig, func() error {
		var openErr error
		db, openErr = gorm.Open(postgres.Open(config.DSN()), gormConfig)
		return openErr
	}, coreLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{
		DB:     db,
		Config: config,
	}, nil
}

// Migrate creates or updates the schema for the ledger tables. The partial
// index backs the sweeper's stale-pending scan.
func (c *Connection) Migrate(ctx context.Context) error {
	db := c.DB.WithContext(ctx)

	if err := db.AutoMigrate(&model.Transaction{}, &model.Transition{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	err := db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_transactions_stale_pending
		 ON transactions (last_transition_at)
		 WHERE state = 'PENDING_CONFIRMATION'`,
	).Error
	if err != nil {
		return fmt.Errorf("failed to create stale pending index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}
