package models

import "time"

// AuthToken is the revocation record backing an issued access token. The
// JWT carries the row's JTI; logout deletes only the row for the presented
// token, leaving the user's other sessions valid.
type AuthToken struct {
	Base
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	JTI        string     `gorm:"size:36;uniqueIndex;not null" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
}
