package dto

import (
	"net/http"

	"github.com/meterbill/backend/internal/domain/shared"
)

// General error codes used by the HTTP layer itself
const (
	ErrCodeInternal   = "INTERNAL"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNoTenant   = "MISSING_TENANT"
)

// domainCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes absent here fall back to the IsValidation check and then to 500.
var domainCodeHTTPStatus = map[string]int{
	"NOT_FOUND":               http.StatusNotFound,
	"ALREADY_EXISTS":          http.StatusConflict,
	"STATE_CONFLICT":          http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"INVALID_STATE":           http.StatusConflict,
	"DEPENDENCY_FAILED":       http.StatusBadGateway,
	"TRANSACTION_FAILED":      http.StatusInternalServerError,

	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNoTenant:   http.StatusBadRequest,
}

// GetHTTPStatus resolves the HTTP status for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := domainCodeHTTPStatus[code]; ok {
		return status
	}
	if shared.IsValidation(&shared.DomainError{Code: code}) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
