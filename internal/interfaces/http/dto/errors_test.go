package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeUnresolvableRubro, http.StatusUnprocessableEntity},
		{ErrCodeTaxonomyInvalid, http.StatusUnprocessableEntity},
		{ErrCodeTaxonomyNotLoaded, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}

	t.Run("unmapped code falls back to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_NOBODY_MAPPED"))
	})
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("domain codes map onto wire codes", func(t *testing.T) {
		tests := []struct {
			domain string
			wire   string
		}{
			{"NOT_FOUND", ErrCodeNotFound},
			{"ALREADY_EXISTS", ErrCodeAlreadyExists},
			{"INVALID_INPUT", ErrCodeInvalidInput},
			{"INVALID_STATE", ErrCodeInvalidState},
			{"UNAUTHORIZED", ErrCodeUnauthorized},
			{"FORBIDDEN", ErrCodeForbidden},
			{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
			{"VALIDATION_ERROR", ErrCodeValidation},
			{"BAD_REQUEST", ErrCodeBadRequest},
			{"INTERNAL_ERROR", ErrCodeInternal},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.wire, NormalizeErrorCode(tt.domain), "domain code %s", tt.domain)
		}
	})

	t.Run("taxonomy codes keep their specific mapping", func(t *testing.T) {
		// Resolution failures and catalog defects carry distinct codes so
		// the frontend can distinguish "fix your input" from "fix the
		// taxonomy file".
		assert.Equal(t, ErrCodeTaxonomyNotLoaded, NormalizeErrorCode("TAXONOMY_NOT_LOADED"))
		assert.Equal(t, ErrCodeUnresolvableRubro, NormalizeErrorCode("UNRESOLVABLE_RUBRO"))
		assert.Equal(t, ErrCodeTaxonomyInvalid, NormalizeErrorCode("DUPLICATE_RUBRO_CODE"))
		assert.Equal(t, ErrCodeTaxonomyInvalid, NormalizeErrorCode("ALIAS_TARGET_UNKNOWN"))
	})

	t.Run("baseline validation codes collapse to invalid input", func(t *testing.T) {
		for _, code := range []string{"INVALID_MONTHS", "INVALID_RUBRO_ID", "EMPTY_BASELINE"} {
			assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode(code), "code %s", code)
		}
		assert.Equal(t, ErrCodeBusinessRule, NormalizeErrorCode("CURRENCY_MISMATCH"))
	})

	t.Run("wire and unknown codes pass through unchanged", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", NormalizeErrorCode("RATE_LIMIT_EXCEEDED"))
		assert.Equal(t, "REQUEST_TOO_LARGE", NormalizeErrorCode("REQUEST_TOO_LARGE"))
	})
}

func TestErrorCodeConstants(t *testing.T) {
	allCodes := []string{
		ErrCodeUnknown,
		ErrCodeInternal,
		ErrCodeValidation,
		ErrCodeValidationRequired,
		ErrCodeValidationFormat,
		ErrCodeValidationRange,
		ErrCodeValidationLength,
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeTokenExpired,
		ErrCodeTokenInvalid,
		ErrCodeNotFound,
		ErrCodeAlreadyExists,
		ErrCodeConflict,
		ErrCodeConcurrencyConflict,
		ErrCodeInvalidState,
		ErrCodeBusinessRule,
		ErrCodeUnresolvableRubro,
		ErrCodeTaxonomyNotLoaded,
		ErrCodeTaxonomyInvalid,
		ErrCodeBadRequest,
		ErrCodeInvalidInput,
		ErrCodeInvalidJSON,
		ErrCodeRateLimited,
		ErrCodeTooManyRequests,
	}

	for _, code := range allCodes {
		// Every constant resolves to a status and follows the ERR_
		// naming convention.
		status, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "code %s missing from ErrorCodeHTTPStatus", code)
		assert.Greater(t, status, 0)
		assert.Contains(t, code, "ERR_", "code %s should carry the ERR_ prefix", code)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("UNRESOLVABLE_RUBRO", `no rubro found for identifier "modulo lider"`)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnresolvableRubro, resp.Error.Code, "domain code is normalized on the way out")
	assert.Contains(t, resp.Error.Message, "modulo lider")
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Baseline not found", "req-baseline-4")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-baseline-4", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-7", []ValidationDetail{
		{Field: "rubro_id", Message: "This field is required"},
		{Field: "months", Message: "Must contain between 1 and 60 entries"},
	})

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-7", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "rubro_id", resp.Error.Details[0].Field)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.finz.internal/errors/taxonomy"
	resp := NewErrorResponseWithHelp(ErrCodeTaxonomyNotLoaded, "Taxonomy catalog unavailable", "req-1", help)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTaxonomyNotLoaded, resp.Error.Code)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseJSONRoundTrip(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Project not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Project not found", decoded.Error.Message)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"rubro_code": "MOD-LEAD"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
		wantSize  int
	}{
		{"even split", 100, 10, 10, 10},
		{"partial last page", 101, 10, 11, 10},
		{"empty result", 0, 10, 0, 10},
		{"single partial page", 9, 10, 1, 10},
		{"boundary", 10, 10, 1, 10},
		{"just over boundary", 11, 10, 2, 10},
		{"zero page size defaults", 100, 0, 5, 20},
		{"negative page size defaults", 100, -1, 5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{"MOD-LEAD"}, tt.total, 1, tt.pageSize)

			assert.True(t, resp.Success)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tt.total, resp.Meta.Total)
			assert.Equal(t, tt.wantPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.wantSize, resp.Meta.PageSize)
		})
	}
}
