package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/apperrors"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/logger"
	"go.uber.org/zap"
)

// CommonServices holds shared dependencies used across handlers.
type CommonServices struct {
	store  db.Store
	logger *zap.Logger
}

// NewCommonServices creates a new instance of CommonServices.
func NewCommonServices(store db.Store, log *zap.Logger) *CommonServices {
	if log == nil {
		log = logger.Log
	}
	return &CommonServices{
		store:  store,
		logger: log,
	}
}

// GetStore returns the storage backend
func (s *CommonServices) GetStore() db.Store {
	return s.store
}

// GetLogger returns the logger
func (s *CommonServices) GetLogger() *zap.Logger {
	return s.logger
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// sendError logs the error and sends a JSON error response, including the
// correlation ID for debugging.
func sendError(c *gin.Context, statusCode int, message string, err error) {
	correlationID := ""
	if id, exists := c.Get("correlationID"); exists {
		correlationID, _ = id.(string)
	}

	if logger.Log != nil {
		logger.Error(message,
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("correlation_id", correlationID),
		)
	}

	c.JSON(statusCode, ErrorResponse{
		Error:         message,
		CorrelationID: correlationID,
	})
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// handleServiceError maps the service error taxonomy onto HTTP status
// codes. The class is carried by the error value, not its message.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		sendError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, apperrors.ErrUnauthorized):
		sendError(c, http.StatusUnauthorized, "Invalid stamp token", err)
	case errors.Is(err, apperrors.ErrNotFound):
		sendError(c, http.StatusNotFound, "Customer not found", err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
