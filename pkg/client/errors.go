package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMissingToken is returned when no bearer token is configured.
	// The job must not start without one.
	ErrMissingToken = errors.New("INPOST_API_TOKEN environment variable not set")

	// ErrUpstreamFormat is returned when the initial response lacks total_pages.
	ErrUpstreamFormat = errors.New(`API response format unexpected. "total_pages" not found`)

	// ErrInvalidBaseURL is returned when the configured endpoint is not an absolute URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// APIError represents a non-200 answer from the points API.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("points API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("points API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes a non-200 status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
