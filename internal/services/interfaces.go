package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(name, email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	UpdateAvatar(userID uint, path string) (*models.User, string, error)
}

// TokenClaims are the JWT claims carried by issued access tokens. ID holds
// the JTI backing the token's revocation row.
type TokenClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken describes a freshly issued access token.
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenServicer issues, validates, and revokes access tokens. Revocation is
// per token: logging out one session leaves the user's other tokens valid.
type TokenServicer interface {
	Issue(user *models.User) (*IssuedToken, error)
	Validate(token string) (*TokenClaims, error)
	Revoke(jti string) error
}

// PasswordResetServicer manages single-use password reset tokens.
type PasswordResetServicer interface {
	// SendResetLink creates a reset token for the address and hands the link
	// to the mailer. Unknown addresses are ignored without error so the
	// response never reveals whether an account exists.
	SendResetLink(email string) error
	// ResetPassword consumes a reset token exactly once and sets the new
	// password.
	ResetPassword(email, token, newPassword string) error
}

// TrackerUpdateFields holds the optional fields of a tracker update. Nil
// fields are left unchanged.
type TrackerUpdateFields struct {
	Name           *string
	Description    *string
	InitialBalance *decimal.Decimal
	Currency       *string
	IsActive       *bool
}

// TrackerServicer defines the contract for tracker-related business logic.
type TrackerServicer interface {
	ListTrackers(userID uint) ([]models.Tracker, error)
	CreateTracker(userID uint, name, description string, initialBalance decimal.Decimal, currency string) (*models.Tracker, error)
	GetTrackerByID(callerID, trackerID uint) (*models.Tracker, error)
	UpdateTracker(callerID, trackerID uint, fields TrackerUpdateFields) (*models.Tracker, error)
	DeleteTracker(callerID, trackerID uint) error
	SearchTrackers(userID uint, query string) ([]models.Tracker, error)
	// GetOwnedTracker loads a tracker and asserts ownership without
	// attaching transactions or the derived balance.
	GetOwnedTracker(callerID, trackerID uint) (*models.Tracker, error)
}

// TransactionCreate holds the validated payload for creating a transaction.
// TrackerID and UserID are always derived server-side from the route and
// caller, never from this struct.
type TransactionCreate struct {
	Name        string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
	Image       *string
	Date        time.Time
}

// TransactionUpdateFields holds the optional fields of a transaction update.
// Nil fields are left unchanged. Type is immutable and deliberately absent.
type TransactionUpdateFields struct {
	TrackerID   *uint
	Name        *string
	Amount      *decimal.Decimal
	Description *string
	Image       *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(callerID, trackerID uint, input TransactionCreate) (*models.Transaction, error)
	GetTransactionByID(callerID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(callerID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(callerID, transactionID uint) error
	PaginateTransactions(callerID, trackerID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	RangeTransactions(callerID, trackerID uint, start, end time.Time) ([]models.Transaction, error)
	SearchTransactions(callerID uint, query string) ([]models.Transaction, error)
}
