package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email. The password
// is always "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     fmt.Sprintf("Test User %d", nextID()),
		Email:    email,
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTracker creates a tracker with a zero initial balance.
func CreateTestTracker(t *testing.T, db *gorm.DB, userID uint) *models.Tracker {
	t.Helper()
	return CreateTestTrackerWithBalance(t, db, userID, decimal.Zero)
}

// CreateTestTrackerWithBalance creates a tracker with the given initial balance.
func CreateTestTrackerWithBalance(t *testing.T, db *gorm.DB, userID uint, initial decimal.Decimal) *models.Tracker {
	t.Helper()

	tracker := &models.Tracker{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Tracker %d", nextID()),
		InitialBalance: initial,
		Currency:       "USD",
		IsActive:       true,
	}
	if err := db.Create(tracker).Error; err != nil {
		t.Fatalf("failed to create test tracker: %v", err)
	}
	return tracker
}

// CreateTestTransaction creates a transaction of the given type and amount,
// dated today.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, trackerID uint, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOn(t, db, userID, trackerID, txType, amount, time.Now().UTC().Truncate(24*time.Hour))
}

// CreateTestTransactionOn creates a transaction with an explicit date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID, trackerID uint, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		TrackerID:       trackerID,
		UserID:          userID,
		Name:            fmt.Sprintf("Test Transaction %d", nextID()),
		Type:            txType,
		Amount:          amount,
		TransactionDate: date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
