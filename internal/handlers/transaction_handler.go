package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/response"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	files              storage.Storage
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, files storage.Storage) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, files: files}
}

// CreateTransactionRequest represents the request payload for creating a
// transaction. The optional receipt image arrives as a multipart file, not
// as a field here. tracker_id and user_id always come from the route and
// caller.
type CreateTransactionRequest struct {
	Name            string   `json:"name" form:"name" binding:"required,max=50"`
	Type            string   `json:"type" form:"type" binding:"required,entry_type"`
	Amount          *float64 `json:"amount" form:"amount" binding:"required,gt=0"`
	Description     string   `json:"description" form:"description" binding:"max=255"`
	TransactionDate string   `json:"transaction_date" form:"transaction_date" binding:"required"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. Absent fields are left unchanged; type is immutable.
type UpdateTransactionRequest struct {
	TrackerID       *uint    `json:"tracker_id" form:"tracker_id"`
	Name            *string  `json:"name" form:"name" binding:"omitempty,max=50"`
	Amount          *float64 `json:"amount" form:"amount" binding:"omitempty,gt=0"`
	Description     *string  `json:"description" form:"description" binding:"omitempty,max=255"`
	TransactionDate *string  `json:"transaction_date" form:"transaction_date"`
}

// RangeRequest represents the query parameters of the date-range endpoint.
type RangeRequest struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

// TransactionSearchResult is a search hit with its owning tracker attached.
type TransactionSearchResult struct {
	ID              uint                   `json:"id"`
	TrackerID       uint                   `json:"tracker_id"`
	Name            string                 `json:"name"`
	Type            models.TransactionType `json:"type"`
	Amount          decimal.Decimal        `json:"amount"`
	Description     string                 `json:"description"`
	Image           *string                `json:"image,omitempty"`
	TransactionDate time.Time              `json:"transaction_date"`
	Tracker         *TrackerSummary        `json:"tracker,omitempty"`
}

// TrackerSummary carries just the identifying fields of a tracker.
type TrackerSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Store creates a transaction under a tracker
// @Summary     Create transaction
// @Description Create an income or expense entry under a tracker owned by the caller, with an optional receipt image
// @Tags        transactions
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int                      true "Tracker ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} response.Envelope "Created transaction"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /trackers/{tracker}/transactions [post]
func (h *TransactionHandler) Store(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trackerID, err := parsePathID(c, "tracker")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	date, err := parseDate(req.TransactionDate)
	if err != nil {
		respondWithError(c, apperrors.ValidationField("transaction_date", "The transaction_date is not a valid date."))
		return
	}

	// The image is stored before the payload is built; the stored path is
	// what ends up on the row.
	var imagePath *string
	if fh, fileErr := c.FormFile("image"); fileErr == nil {
		path, saveErr := saveUpload(h.files, fh, fmt.Sprintf("receipts/%d/%d", userID, trackerID))
		if saveErr != nil {
			respondWithError(c, saveErr)
			return
		}
		imagePath = &path
	}

	transaction, err := h.transactionService.CreateTransaction(userID, trackerID, services.TransactionCreate{
		Name:        req.Name,
		Type:        models.TransactionType(req.Type),
		Amount:      decimal.NewFromFloat(*req.Amount),
		Description: req.Description,
		Image:       imagePath,
		Date:        date,
	})
	if err != nil {
		// The freshly stored file is orphaned if the entry was refused,
		// including ownership failures on the tracker.
		if imagePath != nil {
			if delErr := h.files.Delete(*imagePath); delErr != nil {
				logger.Get().Warnw("Failed to remove orphaned receipt", "path", *imagePath, "error", delErr)
			}
		}
		respondWithError(c, err)
		return
	}

	response.Created(c, "Transaction created successfully", gin.H{"transaction": transaction})
}

// Show returns a single transaction
// @Summary     Get transaction
// @Description Get a transaction owned by the caller
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int true "Tracker ID"
// @Param       id      path int true "Transaction ID"
// @Success     200 {object} response.Envelope "Transaction"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Transaction not found"
// @Router      /trackers/{tracker}/transactions/{id} [get]
func (h *TransactionHandler) Show(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Transaction retrieved successfully", gin.H{"transaction": transaction})
}

// Update modifies a transaction
// @Summary     Update transaction
// @Description Partially update a transaction; absent fields stay unchanged and type cannot change. Moving to a different tracker re-validates ownership of the target.
// @Tags        transactions
// @Accept      json,mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int                      true "Tracker ID"
// @Param       id      path int                      true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} response.Envelope "Updated transaction"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Transaction not found"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /trackers/{tracker}/transactions/{id} [patch]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Ownership is asserted before the payload is considered.
	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	fields := services.TransactionUpdateFields{
		TrackerID:   req.TrackerID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		fields.Amount = &amount
	}
	if req.TransactionDate != nil {
		date, parseErr := parseDate(*req.TransactionDate)
		if parseErr != nil {
			respondWithError(c, apperrors.ValidationField("transaction_date", "The transaction_date is not a valid date."))
			return
		}
		fields.Date = &date
	}

	// A replacement image is stored first; the service drops the old file
	// only after the row save succeeds.
	if fh, fileErr := c.FormFile("image"); fileErr == nil {
		path, saveErr := saveUpload(h.files, fh, fmt.Sprintf("receipts/%d/%d", userID, transaction.TrackerID))
		if saveErr != nil {
			respondWithError(c, saveErr)
			return
		}
		fields.Image = &path
	}

	updated, err := h.transactionService.UpdateTransaction(userID, transactionID, fields)
	if err != nil {
		// The replacement file is orphaned if the update was refused, for
		// example a move to a tracker the caller does not own.
		if fields.Image != nil {
			if delErr := h.files.Delete(*fields.Image); delErr != nil {
				logger.Get().Warnw("Failed to remove orphaned receipt", "path", *fields.Image, "error", delErr)
			}
		}
		respondWithError(c, err)
		return
	}

	response.OK(c, "Transaction updated successfully", gin.H{"transaction": updated})
}

// Destroy deletes a transaction
// @Summary     Delete transaction
// @Description Delete a transaction and its stored receipt image, if any
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int true "Tracker ID"
// @Param       id      path int true "Transaction ID"
// @Success     200 {object} response.Envelope "Transaction deleted"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Transaction not found"
// @Router      /trackers/{tracker}/transactions/{id} [delete]
func (h *TransactionHandler) Destroy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Transaction deleted successfully", nil)
}

// Paginate pages through a tracker's transactions
// @Summary     Paginate transactions
// @Description Page through a tracker's transactions newest-first, ten per page
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path  int true  "Tracker ID"
// @Param       page    query int false "Page number (default 1)"
// @Success     200 {object} response.Envelope "Paginated transactions"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Router      /trackers/{tracker}/paginate/transactions [get]
func (h *TransactionHandler) Paginate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trackerID, err := parsePathID(c, "tracker")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	result, err := h.transactionService.PaginateTransactions(userID, trackerID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Transactions retrieved successfully", result)
}

// Ranged lists a tracker's transactions within a date range
// @Summary     Transactions in date range
// @Description List a tracker's transactions with dates in [start_date, end_date], newest-first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       tracker    path  int    true "Tracker ID"
// @Param       start_date query string true "Start date (YYYY-MM-DD)"
// @Param       end_date   query string true "End date (YYYY-MM-DD)"
// @Success     200 {object} response.Envelope "Transactions in range"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /trackers/{tracker}/range/transactions [get]
func (h *TransactionHandler) Ranged(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trackerID, err := parsePathID(c, "tracker")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		respondWithError(c, apperrors.ValidationField("start_date", "The start_date is not a valid date."))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		respondWithError(c, apperrors.ValidationField("end_date", "The end_date is not a valid date."))
		return
	}
	if start.After(end) {
		respondWithError(c, apperrors.ValidationField("end_date", "The end_date must be a date after or equal to start_date."))
		return
	}

	transactions, err := h.transactionService.RangeTransactions(userID, trackerID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Transactions retrieved successfully", gin.H{"transactions": transactions})
}

// Search finds transactions by name or description
// @Summary     Search transactions
// @Description Case-insensitive substring search over the caller's transactions, capped at fifteen results
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       q query string false "Search query"
// @Success     200 {object} response.Envelope "Matching transactions"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Router      /search/transactions [get]
func (h *TransactionHandler) Search(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.SearchTransactions(userID, c.Query("q"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	results := make([]TransactionSearchResult, 0, len(transactions))
	for _, t := range transactions {
		result := TransactionSearchResult{
			ID:              t.ID,
			TrackerID:       t.TrackerID,
			Name:            t.Name,
			Type:            t.Type,
			Amount:          t.Amount,
			Description:     t.Description,
			Image:           t.Image,
			TransactionDate: t.TransactionDate,
		}
		if t.Tracker != nil {
			result.Tracker = &TrackerSummary{ID: t.Tracker.ID, Name: t.Tracker.Name}
		}
		results = append(results, result)
	}

	response.OK(c, "Transactions retrieved successfully", gin.H{"transactions": results})
}
