package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Transfer Initiation (TRF) ----

// ErrInvalidAmount rejects non-positive transfer amounts.
// The message is part of the API contract.
func ErrInvalidAmount() *AppError {
	return New("TRF_001", "amount must be positive", http.StatusBadRequest)
}

func ErrSameAccount() *AppError {
	return New("TRF_002", "source and destination accounts must differ", http.StatusBadRequest)
}

func ErrReferenceExhausted(err error) *AppError {
	return Wrap("TRF_003", "could not allocate a unique reference code", http.StatusInternalServerError, err)
}

func ErrNotFound(entity string) *AppError {
	return New("TRF_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// Validation wraps request binding failures.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}
