package models

import "time"

// PasswordReset stores a single-use reset token. Only the SHA-256 digest of
// the token is persisted; the raw value goes out in the reset link.
type PasswordReset struct {
	Base
	Email     string    `gorm:"index;not null" json:"email"`
	TokenHash string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}
