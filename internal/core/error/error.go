package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// PostgresErrorMessage describes database failures.
	PostgresErrorMessage = "database operation failed"
)

// Sentinels for the error taxonomy. Match with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrDownstream = errors.New("downstream failure")
	ErrResolution = errors.New("tenant resolution failed")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NotFound reports a referenced resource that no longer exists.
func NotFound(resource string) *AppError {
	return New(ErrNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// Validation reports missing or malformed user input.
func Validation(field, reason string) *AppError {
	return New(ErrValidation, http.StatusBadRequest, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Downstream wraps a failing collaborator call.
func Downstream(service string, err error) *AppError {
	return New(fmt.Errorf("%w: %v", ErrDownstream, err), http.StatusBadGateway, fmt.Sprintf("%s request failed", service))
}

// Resolution reports an inbound identity whose tenant cannot be determined.
func Resolution(pageID string) *AppError {
	return New(ErrResolution, http.StatusNotFound, fmt.Sprintf("no tenant for page %q", pageID))
}

// WrapRedis wraps a Redis error with a consistent status code and message.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: RedisErrorMessage,
	}
}

// WrapPostgres wraps a database error the same way WrapRedis does.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: PostgresErrorMessage,
	}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.Status != 0 {
		return app.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
