// Package errors defines the error taxonomy shared across the cluster:
// sentinel errors for each failure kind, an AppError wrapper carrying an
// HTTP status for the rare surface that needs one, and classification
// helpers so callers can decide retry vs. no-retry without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound covers a missing book/file (locate/read).
	ErrNotFound = errors.New("not found")
	// ErrHashMismatch is returned when a replica's computed hash does not
	// match the advertised contentHash; the write is refused.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrDuplicateIndexRequest marks an idempotency-key hit; callers should
	// ack and increment a skip counter, not treat this as failure.
	ErrDuplicateIndexRequest = errors.New("duplicate index request")
	// ErrTransient covers network, broker-connect, and index-rebalance
	// failures that the caller should retry with backoff.
	ErrTransient = errors.New("transient failure")
	// ErrFatal covers misconfiguration or unrecoverable startup failure.
	ErrFatal = errors.New("fatal error")
	// ErrHandlerFailure signals a bus consumer handler failed; the message
	// must not be acked so the broker redelivers it.
	ErrHandlerFailure = errors.New("handler failure")
	// ErrInvalidInput covers malformed request payloads.
	ErrInvalidInput = errors.New("invalid input")
)

// AppError wraps a sentinel with context and an HTTP status code for the
// handful of surfaces that speak HTTP.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...), StatusCode: statusCode}
}

// HTTPStatusCode maps an error to the status code a handler should write.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrHashMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsTransient reports whether err (or a wrapped cause) is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal reports whether err should abort startup rather than be logged
// and skipped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
