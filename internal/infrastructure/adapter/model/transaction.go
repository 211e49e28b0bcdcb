package model

import (
	"time"
)

// Transaction represents the database model for payment transactions
type Transaction struct {
	ID               string `gorm:"primaryKey;size:36"`
	TenantID         string `gorm:"not null;index;size:64"`
	AccountReference string `gorm:"not null;index;size:50"`
	EntityID         string `gorm:"size:64"`

	// NULL until the gateway acknowledges the push; an empty string would
	// collide in the unique index across unacknowledged rows
	GatewayCheckoutID *string `gorm:"uniqueIndex;size:64"`
	Phone             string  `gorm:"not null;size:12"`
	Amount            int64   `gorm:"not null"`

	State           string `gorm:"not null;index;size:32"`
	ResultCode      *int
	ResultMessage   string `gorm:"size:255"`
	ProviderReceipt string `gorm:"size:64"`

	AttemptCount     int       `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"not null"`
	LastTransitionAt time.Time `gorm:"not null;index"`

	Version int64 `gorm:"not null;default:0"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
