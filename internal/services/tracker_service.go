package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/storage"
)

// Transaction counts attached to tracker reads.
const (
	listRecentCount = 3
	showRecentCount = 7
)

// trackerService handles tracker-related business logic.
type trackerService struct {
	db    *gorm.DB
	files storage.Storage
}

// NewTrackerService creates a new TrackerServicer.
func NewTrackerService(db *gorm.DB, files storage.Storage) TrackerServicer {
	return &trackerService{db: db, files: files}
}

// ListTrackers returns all trackers owned by the user, each carrying its
// derived balance and three most recent transactions.
func (s *trackerService) ListTrackers(userID uint) ([]models.Tracker, error) {
	var trackers []models.Tracker
	if err := s.db.Where("user_id = ?", userID).Find(&trackers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.enrich(trackers, listRecentCount); err != nil {
		return nil, err
	}
	return trackers, nil
}

// CreateTracker persists a new tracker owned by the user and returns the
// stored row including its generated id.
func (s *trackerService) CreateTracker(userID uint, name, description string, initialBalance decimal.Decimal, currency string) (*models.Tracker, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tracker name is required")
	}
	if initialBalance.IsNegative() {
		return nil, apperrors.ValidationField("initial_balance", "The initial_balance must be at least 0.")
	}
	if currency == "" {
		currency = "USD"
	}

	tracker := &models.Tracker{
		UserID:         userID,
		Name:           name,
		Description:    description,
		InitialBalance: initialBalance.Round(2),
		Currency:       strings.ToUpper(currency),
		IsActive:       true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tracker).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracker.CurrentBalance = tracker.InitialBalance
	return tracker, nil
}

// GetTrackerByID loads a tracker after asserting ownership and attaches the
// derived balance and seven most recent transactions.
func (s *trackerService) GetTrackerByID(callerID, trackerID uint) (*models.Tracker, error) {
	tracker, err := s.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return nil, err
	}

	trackers := []models.Tracker{*tracker}
	if err := s.enrich(trackers, showRecentCount); err != nil {
		return nil, err
	}
	return &trackers[0], nil
}

// GetOwnedTracker loads a tracker by id and checks ownership. A missing row
// is 404; an existing row owned by someone else is 403.
func (s *trackerService) GetOwnedTracker(callerID, trackerID uint) (*models.Tracker, error) {
	var tracker models.Tracker
	if err := s.db.First(&tracker, trackerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTrackerNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if tracker.UserID != callerID {
		return nil, apperrors.ErrForbidden
	}
	return &tracker, nil
}

// UpdateTracker applies the present fields to a tracker owned by the caller.
// Absent fields are left unchanged; user_id never changes.
func (s *trackerService) UpdateTracker(callerID, trackerID uint, fields TrackerUpdateFields) (*models.Tracker, error) {
	tracker, err := s.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.InitialBalance != nil {
		if fields.InitialBalance.IsNegative() {
			return nil, apperrors.ValidationField("initial_balance", "The initial_balance must be at least 0.")
		}
		updates["initial_balance"] = fields.InitialBalance.Round(2)
	}
	if fields.Currency != nil {
		updates["currency"] = strings.ToUpper(*fields.Currency)
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(tracker).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.First(tracker, tracker.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	balance, err := s.currentBalance(tracker.ID, tracker.InitialBalance)
	if err != nil {
		return nil, err
	}
	tracker.CurrentBalance = balance
	return tracker, nil
}

// DeleteTracker removes a tracker and all of its transactions in one
// database transaction: both deletes commit or neither does. Stored receipt
// images are removed only after the commit succeeded.
func (s *trackerService) DeleteTracker(callerID, trackerID uint) error {
	tracker, err := s.GetOwnedTracker(callerID, trackerID)
	if err != nil {
		return err
	}

	var images []string
	if err := s.db.Model(&models.Transaction{}).
		Where("tracker_id = ? AND image IS NOT NULL", tracker.ID).
		Pluck("image", &images).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tracker_id = ?", tracker.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(tracker).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, img := range images {
		if err := s.files.Delete(img); err != nil {
			logger.Get().Warnw("failed to delete stored image", "path", img, "error", err)
		}
	}
	return nil
}

// SearchTrackers returns the user's trackers whose name contains the query,
// case-insensitive, each with its balance and three most recent transactions.
func (s *trackerService) SearchTrackers(userID uint, query string) ([]models.Tracker, error) {
	var trackers []models.Tracker
	pattern := "%" + strings.ToLower(query) + "%"
	if err := s.db.Where("user_id = ? AND LOWER(name) LIKE ?", userID, pattern).Find(&trackers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.enrich(trackers, listRecentCount); err != nil {
		return nil, err
	}
	return trackers, nil
}

// enrich attaches the derived balance and the most recent transactions to
// each tracker in the slice.
func (s *trackerService) enrich(trackers []models.Tracker, recent int) error {
	for i := range trackers {
		balance, err := s.currentBalance(trackers[i].ID, trackers[i].InitialBalance)
		if err != nil {
			return err
		}
		trackers[i].CurrentBalance = balance

		var txns []models.Transaction
		if err := s.db.Where("tracker_id = ?", trackers[i].ID).
			Order("transaction_date DESC, id DESC").
			Limit(recent).
			Find(&txns).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		trackers[i].Transactions = txns
	}
	return nil
}

// currentBalance computes initial balance plus income minus expense over all
// child transactions. Computed on read, never stored.
func (s *trackerService) currentBalance(trackerID uint, initial decimal.Decimal) (decimal.Decimal, error) {
	type sumRow struct {
		Type  models.TransactionType
		Total decimal.Decimal
	}
	var rows []sumRow
	if err := s.db.Model(&models.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("tracker_id = ?", trackerID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	balance := initial
	for _, row := range rows {
		switch row.Type {
		case models.TransactionTypeIncome:
			balance = balance.Add(row.Total)
		case models.TransactionTypeExpense:
			balance = balance.Sub(row.Total)
		}
	}
	return balance, nil
}
