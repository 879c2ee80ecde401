package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is a single ledger entry under a tracker. TrackerID and Type
// are immutable after creation. UserID is a denormalized copy of the owning
// tracker's user for query convenience; the tracker remains the source of
// truth for ownership.
type Transaction struct {
	Base
	TrackerID       uint            `gorm:"not null;index" json:"tracker_id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Name            string          `gorm:"size:50;not null" json:"name"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description     string          `gorm:"size:255" json:"description"`
	Image           *string         `json:"image,omitempty"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`

	Tracker *Tracker `gorm:"foreignKey:TrackerID" json:"tracker,omitempty"`
}
