package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/mailer"
	"fintrack/internal/models"
)

const resetTokenTTL = time.Hour

// passwordResetService manages single-use reset tokens. Only token digests
// are stored; the raw token leaves the system inside the emailed link.
type passwordResetService struct {
	db          *gorm.DB
	mail        mailer.Mailer
	frontendURL string
}

// NewPasswordResetService creates a new PasswordResetServicer.
func NewPasswordResetService(db *gorm.DB, mail mailer.Mailer, frontendURL string) PasswordResetServicer {
	return &passwordResetService{db: db, mail: mail, frontendURL: frontendURL}
}

// SendResetLink creates a reset token and mails the link. An unknown address
// returns nil so callers can answer with the same generic message either way.
func (s *passwordResetService) SendResetLink(email string) error {
	email = strings.ToLower(email)

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		logger.Get().Debugw("password reset requested for unknown address", "email", email)
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	token := hex.EncodeToString(raw)

	// A new request supersedes any outstanding token for the address.
	if err := s.db.Where("email = ?", email).Delete(&models.PasswordReset{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	record := &models.PasswordReset{
		Email:     email,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.db.Create(record).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		strings.TrimSuffix(s.frontendURL, "/"), token, url.QueryEscape(email))
	if err := s.mail.SendPasswordReset(email, link); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ResetPassword consumes a valid token exactly once and stores the new
// password hash.
func (s *passwordResetService) ResetPassword(email, token, newPassword string) error {
	email = strings.ToLower(email)

	var record models.PasswordReset
	err := s.db.Where("email = ? AND token_hash = ?", email, hashToken(token)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if time.Now().After(record.ExpiresAt) {
		// Expired tokens are useless; drop the row while rejecting.
		s.db.Delete(&record)
		return apperrors.ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("email = ?", email).Update("password", string(hashed))
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvalidResetToken
		}
		if err := tx.Delete(&record).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
