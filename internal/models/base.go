package models

import "time"

// Base contains common columns for all tables. Rows are hard-deleted:
// tracker removal must leave no child transaction rows behind, which a
// soft-delete flag would obscure.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
