package driven

import (
	"context"
	"time"
)

// Pacer spaces out backend calls and decides how rate-limited calls are
// retried. It is injected into strategies that need it.
type Pacer interface {
	// Wait blocks until the next call may start.
	Wait(ctx context.Context) error

	// Backoff reports whether a failed call should be retried and after how long.
	// attempt is zero-based.
	Backoff(attempt int, err error) (time.Duration, bool)
}
