package model

import (
	"time"
)

// Transition represents one row of the append-only state change log
type Transition struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	TransactionID string `gorm:"not null;index;size:36"`
	FromState     string `gorm:"not null;size:32"`
	ToState       string `gorm:"not null;size:32"`
	ResultCode    *int
	Actor         string    `gorm:"not null;size:32"`
	OccurredAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for Transition
func (Transition) TableName() string {
	return "transaction_transitions"
}
