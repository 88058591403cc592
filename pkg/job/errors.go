package job

import (
	"errors"
	"fmt"
)

// ErrNoPublisher is returned by New when no publisher is configured.
var ErrNoPublisher = errors.New("publisher is required")

// PublishError wraps a failure to store the rendered map.
type PublishError struct {
	Backend string
	Bucket  string
	Key     string
	Err     error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s/%s to %s: %v", e.Bucket, e.Key, e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError checks if an error is a publish failure.
func IsPublishError(err error) bool {
	var pubErr *PublishError
	return errors.As(err, &pubErr)
}
