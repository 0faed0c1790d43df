package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrItemNotFound indicates the requested wardrobe item does not exist
	ErrItemNotFound = errors.New("wardrobe item not found")

	// ErrServerOffline indicates the wardrobe server is unreachable
	ErrServerOffline = errors.New("wardrobe server is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")
)

// APIError is a non-2xx response that carried a structured error payload
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

// IsNetworkError reports whether err is a transport-level failure (no response)
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrServerOffline)
}
