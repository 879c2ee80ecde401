// Package response builds the uniform JSON envelope used by every endpoint.
// Success and error payloads share the same outer shape so clients can parse
// responses uniformly regardless of outcome.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/config"
	apperrors "fintrack/internal/errors"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	ResponseCode int                 `json:"response_code"`
	Status       string              `json:"status"`
	Message      string              `json:"message"`
	Timestamp    string              `json:"timestamp"`
	Data         interface{}         `json:"data,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
}

func envelope(code int, status, message string) Envelope {
	return Envelope{
		ResponseCode: code,
		Status:       status,
		Message:      message,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

// JSON writes a success envelope with an arbitrary 2xx status code.
func JSON(c *gin.Context, code int, message string, data interface{}) {
	env := envelope(code, "success", message)
	env.Data = data
	c.JSON(code, env)
}

// Error writes an error envelope from an AppError. Validation errors carry
// the per-field messages in the errors object. Internal error detail is
// appended to 500 messages only outside production.
func Error(c *gin.Context, appErr *apperrors.AppError) {
	message := appErr.Message
	if appErr.StatusCode == http.StatusInternalServerError && appErr.Internal != nil && config.Get().Debug() {
		message = message + ": " + appErr.Internal.Error()
	}
	env := envelope(appErr.StatusCode, "error", message)
	env.Errors = appErr.Fields
	c.JSON(appErr.StatusCode, env)
}

// ErrorWithStatus writes a bare error envelope for places without an AppError,
// such as the NoRoute handler.
func ErrorWithStatus(c *gin.Context, code int, message string) {
	c.JSON(code, envelope(code, "error", message))
}
