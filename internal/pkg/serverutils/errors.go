package serverutils

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries an HTTP status alongside the message so the error
// middleware can map service failures to responses without type sniffing at
// every call site.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: resource + " not found"}
}

func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Status: http.StatusBadGateway, Message: message, Err: err}
}

func NewPersistenceError(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "persistence failure", Err: err}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

// AsAppError extracts an AppError from an error chain, if present.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
