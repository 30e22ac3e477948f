package port

import (
	"context"
	"time"
)

// RateLimitStore implements a sliding-window counter for the check endpoints.
type RateLimitStore interface {
	// Take records an attempt and reports whether it fits within the limit
	// for the window ending at now.
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (RateLimitDecision, error)
}

// RateLimitDecision is the outcome of one Take call.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}
