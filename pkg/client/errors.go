package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("service unavailable")
	ErrPartialFailure  = errors.New("partial failure")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tagdex: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("tagdex: %s: %s", e.Code, e.Message)
}

// Unwrap maps the status to a sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusBadRequest:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return nil
	}
}

// PartialFailureError is returned with a 207 answer. The result is returned as well.
type PartialFailureError struct {
	Result MutationResult
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("tagdex: partial failure: %d of %d items failed", e.Result.Failed, len(e.Result.Items))
}

func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }
