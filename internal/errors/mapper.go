package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// APIError carries an HTTP status alongside a client-safe message.
// Services return plain errors; handlers run them through Map.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Map converts repo/infra errors into APIErrors for the HTTP layer.
// Keeps handlers clean by centralizing error mapping.
func Map(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &APIError{Status: http.StatusNotFound, Message: "record not found"}

	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusGatewayTimeout, Message: "request timed out"}

	case errors.Is(err, context.Canceled):
		return &APIError{Status: http.StatusRequestTimeout, Message: "request was canceled"}

	default:
		// fallback → bubble up error message for debugging
		return &APIError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
}

// AbortWith maps err and writes it as the JSON response, stopping the chain.
func AbortWith(c *gin.Context, err error) {
	apiErr := Map(err)
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
}

// InvalidArgument creates a 400 error. Use in handlers for bad input.
func InvalidArgument(msg string) error {
	return &APIError{Status: http.StatusBadRequest, Message: msg}
}

// NotFound creates a 404 error.
func NotFound(msg string) error {
	return &APIError{Status: http.StatusNotFound, Message: msg}
}

// Forbidden creates a 403 error.
func Forbidden(msg string) error {
	return &APIError{Status: http.StatusForbidden, Message: msg}
}

// Conflict creates a 409 error.
func Conflict(msg string) error {
	return &APIError{Status: http.StatusConflict, Message: msg}
}
