package services

import (
	"errors"
	"log"
	"net/http"

	"github.com/collegeerp/backend/internal/models"
	"github.com/lib/pq"
)

var (
	ErrValidation         = models.ErrValidation
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked due to too many failed login attempts")
	ErrAccountDeactivated = errors.New("account has been deactivated")
	ErrForbidden          = errors.New("forbidden")
)

// ServiceError pairs a taxonomy sentinel with a user-facing message.
type ServiceError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

func wrapError(kind error, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// StatusCode maps the error taxonomy to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, ErrAccountDeactivated), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// publicMessage never leaks internal error details for 5xx responses.
func publicMessage(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, ErrAccountLocked):
		return "Account is temporarily locked due to too many failed login attempts. Please try again later."
	case errors.Is(err, ErrAccountDeactivated):
		return "Your account has been deactivated. Contact administrator."
	}
	return fallback
}

// SendServiceError writes err using the status mapping and logs unexpected failures.
func SendServiceError(w http.ResponseWriter, tag string, err error, fallback string) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] %s: %v", tag, fallback, err)
	}
	SendErrorResponse(w, publicMessage(err, fallback), status, nil)
}
