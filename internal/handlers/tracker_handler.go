package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fintrack/internal/response"
	"fintrack/internal/services"
)

// TrackerHandler handles tracker-related requests.
type TrackerHandler struct {
	trackerService services.TrackerServicer
}

// NewTrackerHandler creates a new TrackerHandler.
func NewTrackerHandler(trackerService services.TrackerServicer) *TrackerHandler {
	return &TrackerHandler{trackerService: trackerService}
}

// CreateTrackerRequest represents the request payload for creating a tracker.
type CreateTrackerRequest struct {
	Name           string   `json:"name" binding:"required,max=100"`
	Description    string   `json:"description" binding:"max=500"`
	InitialBalance *float64 `json:"initial_balance" binding:"required,gte=0"`
	Currency       string   `json:"currency" binding:"omitempty,iso4217"`
}

// UpdateTrackerRequest represents the request payload for updating a tracker.
// Absent fields are left unchanged.
type UpdateTrackerRequest struct {
	Name           *string  `json:"name" binding:"omitempty,max=100"`
	Description    *string  `json:"description" binding:"omitempty,max=500"`
	InitialBalance *float64 `json:"initial_balance" binding:"omitempty,gte=0"`
	Currency       *string  `json:"currency" binding:"omitempty,iso4217"`
	IsActive       *bool    `json:"is_active"`
}

// Index lists the caller's trackers
// @Summary     List trackers
// @Description List all trackers owned by the caller, each with its three most recent transactions
// @Tags        trackers
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} response.Envelope "Trackers"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Router      /trackers [get]
func (h *TrackerHandler) Index(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trackers, err := h.trackerService.ListTrackers(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Trackers retrieved successfully", gin.H{"trackers": trackers})
}

// Store creates a tracker
// @Summary     Create tracker
// @Description Create a tracker owned by the caller
// @Tags        trackers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTrackerRequest true "Tracker details"
// @Success     201 {object} response.Envelope "Created tracker"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /trackers [post]
func (h *TrackerHandler) Store(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	tracker, err := h.trackerService.CreateTracker(
		userID,
		req.Name,
		req.Description,
		decimal.NewFromFloat(*req.InitialBalance),
		req.Currency,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.Created(c, "Tracker created successfully", gin.H{"tracker": tracker})
}

// Show returns a single tracker
// @Summary     Get tracker
// @Description Get a tracker with its seven most recent transactions
// @Tags        trackers
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int true "Tracker ID"
// @Success     200 {object} response.Envelope "Tracker"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Router      /trackers/{tracker} [get]
func (h *TrackerHandler) Show(c *gin.Context) {
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

	tracker, err := h.trackerService.GetTrackerByID(userID, trackerID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Tracker retrieved successfully", gin.H{"tracker": tracker})
}

// Update modifies a tracker
// @Summary     Update tracker
// @Description Partially update a tracker; absent fields stay unchanged
// @Tags        trackers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int                  true "Tracker ID"
// @Param       request body UpdateTrackerRequest true "Fields to update"
// @Success     200 {object} response.Envelope "Updated tracker"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /trackers/{tracker} [patch]
func (h *TrackerHandler) Update(c *gin.Context) {
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

	// Ownership is asserted before the payload is considered.
	if _, err := h.trackerService.GetOwnedTracker(userID, trackerID); err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	fields := services.TrackerUpdateFields{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		IsActive:    req.IsActive,
	}
	if req.InitialBalance != nil {
		balance := decimal.NewFromFloat(*req.InitialBalance)
		fields.InitialBalance = &balance
	}

	tracker, err := h.trackerService.UpdateTracker(userID, trackerID, fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Tracker updated successfully", gin.H{"tracker": tracker})
}

// Destroy deletes a tracker and its transactions
// @Summary     Delete tracker
// @Description Delete a tracker and all of its transactions atomically
// @Tags        trackers
// @Produce     json
// @Security    BearerAuth
// @Param       tracker path int true "Tracker ID"
// @Success     200 {object} response.Envelope "Tracker deleted"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     403 {object} response.Envelope "Not the owner"
// @Failure     404 {object} response.Envelope "Tracker not found"
// @Router      /trackers/{tracker} [delete]
func (h *TrackerHandler) Destroy(c *gin.Context) {
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

	if err := h.trackerService.DeleteTracker(userID, trackerID); err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Tracker deleted successfully", nil)
}

// Search finds trackers by name
// @Summary     Search trackers
// @Description Case-insensitive substring search over the caller's tracker names
// @Tags        trackers
// @Produce     json
// @Security    BearerAuth
// @Param       q query string false "Search query"
// @Success     200 {object} response.Envelope "Matching trackers"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Router      /search/trackers [get]
func (h *TrackerHandler) Search(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trackers, err := h.trackerService.SearchTrackers(userID, c.Query("q"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Trackers retrieved successfully", gin.H{"trackers": trackers})
}
