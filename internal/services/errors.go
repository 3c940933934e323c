package services

import (
	"database/sql"
	"errors"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is an error a client is allowed to see. Anything else reaching the
// HTTP layer is reported as INTERNAL_ERROR.
type AppError struct {
	Code    string
	Status  int
	Message string
}

func (e *AppError) Error() string { return e.Code + ": " + e.Message }

func Validation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *AppError {
	if msg == "" {
		msg = "Unauthorized"
	}
	return &AppError{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *AppError {
	if msg == "" {
		msg = "Forbidden"
	}
	return &AppError{Code: CodeForbidden, Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *AppError {
	if msg == "" {
		msg = "Not found"
	}
	return &AppError{Code: CodeNotFound, Status: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Status: http.StatusConflict, Message: msg}
}

func RateLimited() *AppError {
	return &AppError{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: "Too many requests, try again later"}
}

func Internal() *AppError {
	return &AppError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Internal server error"}
}

// AsAppError unwraps err to an *AppError if there is one.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Code == code
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND with msg and passes other errors through.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(msg)
	}
	return err
}
