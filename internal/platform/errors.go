package platform

import (
	"fmt"
	"time"
)

// AuthError indicates missing or rejected credentials. Fatal: callers should
// stop rather than retry.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("platform auth error: %s", e.Reason)
}

// NotFoundError indicates the platform reported no such resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("platform %s not found", e.Resource)
	}
	return fmt.Sprintf("platform %s %s not found", e.Resource, e.ID)
}

// RateLimitError indicates the endpoint is rate limited until ResetAt.
// Callers should cool down until the reset passes, never retry immediately.
type RateLimitError struct {
	Endpoint string
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform endpoint %s rate limited until %s", e.Endpoint, e.ResetAt.Format(time.RFC3339))
}

// RetryAfter returns how long until the rate limit resets.
func (e *RateLimitError) RetryAfter() time.Duration {
	d := time.Until(e.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// TransientError wraps network and 5xx failures that survived the retry
// budget. Safe to retry later; callers typically log and skip the item.
type TransientError struct {
	Endpoint string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("platform endpoint %s transient failure: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
