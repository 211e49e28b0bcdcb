package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	errs "github.com/mwangikim/nyumbapay/internal/domain/error"
	coreport "github.com/mwangikim/nyumbapay/internal/domain/port/core"
	"github.com/mwangikim/nyumbapay/internal/infrastructure/adapter/model"
)

// LedgerRepository implements persistence.LedgerRepository using GORM
type LedgerRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewLedgerRepository creates a new LedgerRepository instance
func NewLedgerRepository(db *gorm.DB, logger coreport.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// checkoutIDColumn maps the entity's empty checkout id to NULL so that
// unacknowledged rows never collide in the unique index
func checkoutIDColumn(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// entityToModel converts a transaction entity to a database model
func (r *LedgerRepository) entityToModel(txn *entity.Transaction) model.Transaction {
	return model.Transaction{
		ID:                txn.ID,
		TenantID:          txn.TenantID,
		AccountReference:  txn.AccountReference,
		EntityID:          txn.EntityID,
		GatewayCheckoutID: checkoutIDColumn(txn.GatewayCheckoutID),
		Phone:             txn.Phone,
		Amount:            txn.Amount,
		State:             string(txn.State),
		ResultCode:        txn.ResultCode,
		ResultMessage:     txn.ResultMessage,
		ProviderReceipt:   txn.ProviderReceipt,
		AttemptCount:      txn.AttemptCount,
		CreatedAt:         txn.CreatedAt,
		LastTransitionAt:  txn.LastTransitionAt,
		Version:           txn.Version,
	}
}

// modelToEntity converts a transaction model to an entity
func (r *LedgerRepository) modelToEntity(m *model.Transaction) *entity.Transaction {
	checkoutID := ""
	if m.GatewayCheckoutID != nil {
		checkoutID = *m.GatewayCheckoutID
	}
	return &entity.Transaction{
		ID:                m.ID,
		TenantID:          m.TenantID,
		AccountReference:  m.AccountReference,
		EntityID:          m.EntityID,
		GatewayCheckoutID: checkoutID,
		Phone:             m.Phone,
		Amount:            m.Amount,
		State:             entity.State(m.State),
		ResultCode:        m.ResultCode,
		ResultMessage:     m.ResultMessage,
		ProviderReceipt:   m.ProviderReceipt,
		AttemptCount:      m.AttemptCount,
		CreatedAt:         m.CreatedAt,
		LastTransitionAt:  m.LastTransitionAt,
		Version:           m.Version,
	}
}

// Create saves a new transaction row
func (r *LedgerRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	r.logger.Debug("Creating transaction", map[string]any{
		"transaction_id": txn.ID,
		"tenant_id":      txn.TenantID,
	})

	transactionModel := r.entityToModel(txn)

	result := r.db.WithContext(ctx).Create(&transactionModel)
	if result.Error != nil {
		r.logger.Error("Failed to create transaction", map[string]any{
			"transaction_id": txn.ID,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return nil
}

// GetByID retrieves a transaction by its internal id
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&transactionModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", map[string]any{
			"transaction_id": id,
			"error":          result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.modelToEntity(&transactionModel), nil
}

// GetByCheckoutID retrieves a transaction by the provider-assigned checkout id
func (r *LedgerRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("gateway_checkout_id = ?", checkoutID).
		First(&transactionModel)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction by checkout id", map[string]any{
			"checkout_id": checkoutID,
			"error":       result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.modelToEntity(&transactionModel), nil
}

// ApplyTransition persists a state change with a compare-and-swap on
// (state, version) and appends the audit row in the same database
// transaction. The update matches zero rows when a concurrent writer got
// there first, which surfaces as ErrStateConflict.
func (r *LedgerRepository) ApplyTransition(ctx context.Context, txn *entity.Transaction, from entity.State, tr entity.Transition) error {
	err := r.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		result := dbTx.Model(&model.Transaction{}).
			Where("id = ? AND state = ? AND version = ?", txn.ID, string(from), txn.Version).
			Updates(map[string]interface{}{
				"state":               string(txn.State),
				"gateway_checkout_id": checkoutIDColumn(txn.GatewayCheckoutID),
				"result_code":         txn.ResultCode,
				"result_message":      txn.ResultMessage,
				"provider_receipt":    txn.ProviderReceipt,
				"last_transition_at":  txn.LastTransitionAt,
				"version":             gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Distinguish a missing row from a concurrent move
			var count int64
			if err := dbTx.Model(&model.Transaction{}).
				Where("id = ?", txn.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errs.ErrTransactionNotFound
			}
			return errs.ErrStateConflict
		}

		transitionModel := model.Transition{
			TransactionID: tr.TransactionID,
			FromState:     string(tr.FromState),
			ToState:       string(tr.ToState),
			ResultCode:    tr.ResultCode,
			Actor:         tr.Actor,
			OccurredAt:    tr.OccurredAt,
		}
		return dbTx.Create(&transitionModel).Error
	})

	if err != nil {
		if errors.Is(err, errs.ErrStateConflict) || errors.Is(err, errs.ErrTransactionNotFound) {
			return err
		}
		// Serialization failures behave like a lost CAS race
		if r.errorClassifier.IsLockError(err) {
			r.logger.Warn("Transition hit a lock conflict", map[string]any{
				"transaction_id": txn.ID,
				"error":          err.Error(),
			})
			return errs.ErrStateConflict
		}
		r.logger.Error("Failed to apply transition", map[string]any{
			"transaction_id": txn.ID,
			"from":           string(from),
			"to":             string(txn.State),
			"error":          err.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}

	txn.Version++
	return nil
}

// IncrementAttempts bumps the reconciliation attempt counter and returns
// the new count
func (r *LedgerRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return 0, errs.ErrTransactionNotFound
	}

	var count int
	row := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", id).
		Select("attempt_count").
		Row()
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	return count, nil
}

// ListStalePending returns pending transactions whose last transition is
// older than the cutoff, oldest first
func (r *LedgerRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Transaction, error) {
	var rows []model.Transaction
	result := r.db.WithContext(ctx).
		Where("state = ? AND last_transition_at < ?", string(entity.StatePendingConfirmation), cutoff).
		Order("last_transition_at ASC").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		r.logger.Error("Failed to list stale pending transactions", map[string]any{
			"error": result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	transactions := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, r.modelToEntity(&rows[i]))
	}
	return transactions, nil
}
