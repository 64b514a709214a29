package dto

import "net/http"

// Common error codes used when no domain code applies
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// GetHTTPStatus maps a domain error code to an HTTP status code
func GetHTTPStatus(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_EXISTS":
		return http.StatusConflict
	case "INVALID_STATE":
		return http.StatusConflict
	case "FORBIDDEN":
		return http.StatusForbidden
	case "INSUFFICIENT_STOCK", "QUANTITY_EXCEEDS_SOLD", "PAYMENT_MISMATCH":
		return http.StatusUnprocessableEntity
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
