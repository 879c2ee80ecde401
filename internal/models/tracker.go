package models

import "github.com/shopspring/decimal"

// Tracker is a named balance container owned by a single user. UserID is set
// once at creation and never changes.
type Tracker struct {
	Base
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	Description    string          `gorm:"size:500" json:"description"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"initial_balance"`
	Currency       string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`

	// CurrentBalance is derived on read: initial balance plus income minus
	// expense over all child transactions. Never stored.
	CurrentBalance decimal.Decimal `gorm:"-" json:"current_balance"`

	Transactions []Transaction `gorm:"foreignKey:TrackerID" json:"transactions,omitempty"`
}
