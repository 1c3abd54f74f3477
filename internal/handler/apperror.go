package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidSignature = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidChat    = &AppError{http.StatusBadRequest, "INVALID_CHAT", "Chat id must be a non-zero integer"}
	ErrAmountOverflow = &AppError{http.StatusUnprocessableEntity, "AMOUNT_OUT_OF_RANGE", "Amount or balance exceeds the supported range"}
	ErrLedgerBusy     = &AppError{http.StatusServiceUnavailable, "LEDGER_BUSY", "Ledger is busy, please retry"}
	ErrRateLimited    = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests"}
)
