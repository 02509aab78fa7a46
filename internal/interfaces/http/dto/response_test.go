package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeCurrencyMismatch, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeCurrencyMismatch, NormalizeErrorCode("CURRENCY_MISMATCH"))
	assert.Equal(t, ErrCodeValidation, NormalizeErrorCode("VALIDATION_ERROR"))
	assert.Equal(t, ErrCodeInvalidState, NormalizeErrorCode(ErrCodeInvalidState))
	assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Zero(t, resp.Meta.TotalPages)
}

func TestErrorResponses_JSON(t *testing.T) {
	t.Run("retryable conflict", func(t *testing.T) {
		body, err := json.Marshal(NewRetryableErrorResponse(ErrCodeConcurrencyConflict, "trade operation is busy", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"success": false,
			"error": {"code": "ERR_CONCURRENCY_CONFLICT", "message": "trade operation is busy", "request_id": "req-1", "retryable": true}
		}`, string(body))
	})

	t.Run("validation details", func(t *testing.T) {
		body, err := json.Marshal(NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{
			{Field: "amount", Message: "Must be greater than 0"},
		}))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"success": false,
			"error": {
				"code": "ERR_VALIDATION",
				"message": "Request validation failed",
				"details": [{"field": "amount", "message": "Must be greater than 0"}]
			}
		}`, string(body))
	})
}
