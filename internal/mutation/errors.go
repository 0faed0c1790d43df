package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/wardrobe/internal/domain"
)

// Describe turns a mutation error into a message for the user.
// Transport failures get connectivity guidance, API failures carry the
// server's own detail.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *domain.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for the server"
	case domain.IsNetworkError(err):
		return "cannot reach the wardrobe server; check your connection and the server URL"
	case errors.Is(err, domain.ErrAuthFailed):
		return "the server rejected the token; run 'wardrobe setup' again"
	case errors.Is(err, domain.ErrItemNotFound):
		return "item no longer exists"
	case errors.As(err, &apiErr):
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fmt.Sprintf("server returned status %d", apiErr.Status)
	default:
		return err.Error()
	}
}
