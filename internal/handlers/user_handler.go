package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/response"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// UserHandler handles requests against the authenticated user's profile.
type UserHandler struct {
	userService services.UserServicer
	files       storage.Storage
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, files storage.Storage) *UserHandler {
	return &UserHandler{userService: userService, files: files}
}

// UpdateAvatar replaces the caller's avatar image
// @Summary     Update avatar
// @Description Upload a new avatar image for the authenticated user; the previous image is removed
// @Tags        users
// @Accept      mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       avatar formData file true "Avatar image (jpg, png or gif)"
// @Success     200 {object} response.Envelope "Updated user"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /user/avatar [put]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fh, fileErr := c.FormFile("avatar")
	if fileErr != nil {
		respondWithError(c, apperrors.ValidationField("avatar", "The avatar field is required."))
		return
	}

	path, err := saveUpload(h.files, fh, fmt.Sprintf("avatars/%d", userID))
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, previous, err := h.userService.UpdateAvatar(userID, path)
	if err != nil {
		// The freshly stored file is orphaned if the row update failed.
		if delErr := h.files.Delete(path); delErr != nil {
			logger.Get().Warnw("Failed to remove orphaned avatar", "path", path, "error", delErr)
		}
		respondWithError(c, err)
		return
	}

	if previous != "" {
		if delErr := h.files.Delete(previous); delErr != nil {
			logger.Get().Warnw("Failed to remove previous avatar", "path", previous, "error", delErr)
		}
	}

	resp := userResponse(user)
	if user.Avatar != nil {
		url := h.files.URL(*user.Avatar)
		resp.Avatar = &url
	}

	response.OK(c, "Avatar updated successfully", gin.H{"user": resp})
}
