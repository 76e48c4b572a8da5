package handler

import "github.com/finz/backend/internal/interfaces/http/dto"

// APIResponse is the response envelope as swag sees it. Handlers write
// dto.Response at runtime; this generic mirror exists so the generated
// OpenAPI schema carries a concrete data type per endpoint.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents the failure shape of the envelope.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse documents a data-less success, e.g. deletes.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}
