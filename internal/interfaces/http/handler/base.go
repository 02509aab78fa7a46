package handler

import (
	"errors"
	"net/http"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/infrastructure/logger"
	"github.com/erp/landedcost/internal/interfaces/http/dto"
	"github.com/erp/landedcost/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDKey is the header carrying the request id
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the request logger, falling
// back to the header
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// BindJSON binds the request body, writing the validation response on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters, writing the validation response on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ParseID parses a UUID path parameter, writing a 400 on failure
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: param, Message: "Invalid UUID format"}})
		return uuid.Nil, false
	}
	return id, true
}

// HandleError converts service errors to HTTP responses. Engine errors are
// matched before shared.DomainError since they unwrap to the shared sentinels.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var validationErr *landedcost.ValidationError
	var currencyErr *landedcost.CurrencyMismatchError
	var stateErr *landedcost.StateError
	var concurrencyErr *landedcost.ConcurrencyError
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &validationErr):
		details := []dto.ValidationDetail{{Field: validationErr.Field, Message: validationErr.Message}}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(validationErr.Error(), requestID, details))
	case errors.As(err, &currencyErr):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeCurrencyMismatch, currencyErr.Error())
	case errors.As(err, &stateErr):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, stateErr.Error())
	case errors.As(err, &concurrencyErr):
		c.JSON(http.StatusConflict, dto.NewRetryableErrorResponse(
			dto.ErrCodeConcurrencyConflict, concurrencyErr.Error(), requestID))
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
	default:
		logger.FromContext(c.Request.Context()).Error("Unhandled service error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}
