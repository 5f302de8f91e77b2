package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink/pkg/logging"
)

// Error represents an API error carrying an HTTP status code. Only the
// message is surfaced to the caller.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new API error
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Error taxonomy constructors
func ValidationError(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}

func Conflict(message string) *Error {
	return NewError(http.StatusConflict, message)
}

func Unauthenticated(message string) *Error {
	return NewError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, message)
}

// abortWithError writes the error response for an operation. Taxonomy
// errors pass through with their status, uniqueness violations that
// slipped past the pre-checks surface as a conflict, and anything else
// is logged with operation context and surfaced as a generic internal
// error.
func abortWithError(c *gin.Context, operation string, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Resource already exists"})
		return
	}
	logging.WithOperation(operation).Error("Internal error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
