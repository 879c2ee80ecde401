package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/storage"
)

const (
	// transactionsPerPage is the fixed page size of the paginate endpoint.
	transactionsPerPage = 10
	// searchResultCap bounds transaction search results.
	searchResultCap = 15
)

// minAmount is the smallest amount a transaction may carry. Amounts are
// stored at two decimal places, so anything that rounds below one cent is
// rejected rather than persisted as zero.
var minAmount = decimal.New(1, -2)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db       *gorm.DB
	trackers TrackerServicer
	files    storage.Storage
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, trackers TrackerServicer, files storage.Storage) TransactionServicer {
	return &transactionService{db: db, trackers: trackers, files: files}
}

// CreateTransaction creates a ledger entry under a tracker owned by the
// caller. TrackerID and UserID come from the route and caller, never from
// client input.
func (s *transactionService) CreateTransaction(callerID, trackerID uint, input TransactionCreate) (*models.Transaction, error) {
	amount := input.Amount.Round(2)
	if amount.LessThan(minAmount) {
		return nil, apperrors.ValidationField("amount", "The amount must be at least 0.01.")
	}

	tracker, err := s.trackers.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		TrackerID:       tracker.ID,
		UserID:          tracker.UserID,
		Name:            input.Name,
		Type:            input.Type,
		Amount:          amount,
		Description:     input.Description,
		Image:           input.Image,
		TransactionDate: input.Date,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetTransactionByID loads a transaction and asserts ownership. A missing
// row is 404; an existing row owned by another user is 403.
func (s *transactionService) GetTransactionByID(callerID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transaction.UserID != callerID {
		return nil, apperrors.ErrForbidden
	}
	return &transaction, nil
}

// UpdateTransaction applies the present fields to a transaction owned by the
// caller. Moving the entry to another tracker re-validates ownership of the
// target. When a new image replaces an old one, the old file is removed only
// after the row save succeeded.
func (s *transactionService) UpdateTransaction(callerID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(callerID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if fields.TrackerID != nil && *fields.TrackerID != transaction.TrackerID {
		target, err := s.trackers.GetOwnedTracker(callerID, *fields.TrackerID)
		if err != nil {
			return nil, err
		}
		updates["tracker_id"] = target.ID
	}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Amount != nil {
		amount := fields.Amount.Round(2)
		if amount.LessThan(minAmount) {
			return nil, apperrors.ValidationField("amount", "The amount must be at least 0.01.")
		}
		updates["amount"] = amount
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Date != nil {
		updates["transaction_date"] = *fields.Date
	}

	var previousImage string
	if fields.Image != nil {
		if transaction.Image != nil {
			previousImage = *transaction.Image
		}
		updates["image"] = *fields.Image
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.First(transaction, transaction.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	// The replaced file goes away only after the new path is on the row.
	if previousImage != "" && previousImage != *fields.Image {
		if err := s.files.Delete(previousImage); err != nil {
			logger.Get().Warnw("failed to delete replaced image", "path", previousImage, "error", err)
		}
	}

	return transaction, nil
}

// DeleteTransaction removes a transaction and its stored receipt image, if
// any.
func (s *transactionService) DeleteTransaction(callerID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(callerID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if transaction.Image != nil {
		if err := s.files.Delete(*transaction.Image); err != nil {
			logger.Get().Warnw("failed to delete stored image", "path", *transaction.Image, "error", err)
		}
	}
	return nil
}

// PaginateTransactions returns a tracker's transactions newest-first at a
// fixed page size of ten.
func (s *transactionService) PaginateTransactions(callerID, trackerID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	tracker, err := s.trackers.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return nil, err
	}

	page.Defaults(transactionsPerPage)
	page.PerPage = transactionsPerPage

	base := s.db.Model(&models.Transaction{}).Where("tracker_id = ? AND user_id = ?", tracker.ID, callerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("transaction_date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PerPage, total)
	return &result, nil
}

// RangeTransactions returns the tracker's transactions with a date in
// [start, end], newest-first.
func (s *transactionService) RangeTransactions(callerID, trackerID uint, start, end time.Time) ([]models.Transaction, error) {
	tracker, err := s.trackers.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.db.
		Where("tracker_id = ? AND user_id = ? AND transaction_date >= ? AND transaction_date <= ?",
			tracker.ID, callerID, start, end).
		Order("transaction_date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// SearchTransactions returns the caller's transactions whose name or
// description contains the query, case-insensitive, capped at fifteen
// results with the owning tracker attached.
func (s *transactionService) SearchTransactions(callerID uint, query string) ([]models.Transaction, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var transactions []models.Transaction
	if err := s.db.
		Where("user_id = ? AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", callerID, pattern, pattern).
		Limit(searchResultCap).
		Preload("Tracker", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}
