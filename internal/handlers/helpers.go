package handlers

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/response"
	"fintrack/internal/storage"
	"fintrack/internal/uuid"
	"fintrack/internal/validator"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthenticated if not present.
func getUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return 0, apperrors.ErrUnauthenticated
	}
	return userID.(uint), nil
}

// parsePathID parses a uint path parameter.
// Returns ErrNotFound if the parameter is not a valid positive integer.
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, apperrors.ErrNotFound
	}
	return uint(id), nil
}

// respondWithError writes the error envelope. If the error is an *AppError
// it uses the error's status, message, and field errors. Otherwise it logs
// the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		response.Error(c, appErr)
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	response.Error(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
}

// bindingError converts a binding failure into a 422 AppError with per-field
// messages.
func bindingError(err error) *apperrors.AppError {
	return apperrors.Validation(validator.Translate(err))
}

// dateFormats are accepted for transaction_date and range bounds.
var dateFormats = []string{"2006-01-02", time.RFC3339}

// parseDate parses a client-supplied date value.
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC3339", value)
}

// maxImageSize caps uploaded receipt and avatar images.
const maxImageSize = 100 << 20

// validateImage checks size and that the upload decodes as an image, and
// returns the file extension for the stored name.
func validateImage(fh *multipart.FileHeader) (string, *apperrors.AppError) {
	if fh.Size > maxImageSize {
		return "", apperrors.ValidationField("image", "The image may not be greater than 100 megabytes.")
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", apperrors.ValidationField("image", "The image must be a valid image file.")
	}
	if format == "jpeg" {
		format = "jpg"
	}
	return format, nil
}

// saveUpload validates and stores an uploaded image under dir, returning the
// stored path.
func saveUpload(files storage.Storage, fh *multipart.FileHeader, dir string) (string, error) {
	ext, appErr := validateImage(fh)
	if appErr != nil {
		return "", appErr
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer f.Close()

	path, err := files.Save(fmt.Sprintf("%s/%s.%s", dir, uuid.New(), ext), f)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return path, nil
}
