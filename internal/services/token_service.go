package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/uuid"
)

// tokenService issues HS256 JWTs whose JTI maps to an auth_tokens row, so a
// single token can be revoked without touching the user's other sessions.
type tokenService struct {
	db     *gorm.DB
	secret []byte
	expiry time.Duration
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB, secret string, expiry time.Duration) TokenServicer {
	return &tokenService{db: db, secret: []byte(secret), expiry: expiry}
}

// Issue creates a new access token for the user.
func (s *tokenService) Issue(user *models.User) (*IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)
	jti := uuid.New()

	record := &models.AuthToken{
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	claims := &TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "fintrack-api",
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &IssuedToken{Token: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// Validate parses the JWT and checks that its JTI still maps to a live
// auth_tokens row. Revoked or expired tokens fail validation.
func (s *tokenService) Validate(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthenticated
	}

	var record models.AuthToken
	if err := s.db.Where("jti = ?", claims.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, apperrors.ErrUnauthenticated
	}

	// Best effort; a failed touch must not fail the request.
	now := time.Now()
	s.db.Model(&record).Update("last_used_at", now)

	return claims, nil
}

// Revoke deletes the auth_tokens row for the given JTI, invalidating only
// that token.
func (s *tokenService) Revoke(jti string) error {
	if err := s.db.Where("jti = ?", jti).Delete(&models.AuthToken{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
