package platform

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Rate limit headers returned by the platform on every response.
const (
	headerLimit     = "x-rate-limit-limit"
	headerRemaining = "x-rate-limit-remaining"
	headerReset     = "x-rate-limit-reset"
)

type endpointLimit struct {
	limit     int
	remaining int
	resetAt   time.Time
}

// Ledger tracks per-endpoint rate limit state parsed from response headers.
// It is owned and mutated only by the Client; updates are last-write-wins per
// endpoint key.
type Ledger struct {
	mu        sync.RWMutex
	endpoints map[string]endpointLimit
}

func NewLedger() *Ledger {
	return &Ledger{endpoints: make(map[string]endpointLimit)}
}

// UpdateFromHeaders records the endpoint's rate limit state from a response.
func (l *Ledger) UpdateFromHeaders(endpoint string, header http.Header) {
	limit, err := strconv.Atoi(header.Get(headerLimit))
	if err != nil {
		return
	}
	remaining, err := strconv.Atoi(header.Get(headerRemaining))
	if err != nil {
		return
	}
	resetEpoch, err := strconv.ParseInt(header.Get(headerReset), 10, 64)
	if err != nil {
		return
	}
	l.mu.Lock()
	l.endpoints[endpoint] = endpointLimit{
		limit:     limit,
		remaining: remaining,
		resetAt:   time.Unix(resetEpoch, 0),
	}
	l.mu.Unlock()
}

// Exhaust marks the endpoint as fully rate limited until resetAt. Used when
// the platform answers 429.
func (l *Ledger) Exhaust(endpoint string, resetAt time.Time) {
	l.mu.Lock()
	e := l.endpoints[endpoint]
	e.remaining = 0
	e.resetAt = resetAt
	l.endpoints[endpoint] = e
	l.mu.Unlock()
}

// Blocked reports whether calls to the endpoint should short-circuit, and
// until when.
func (l *Ledger) Blocked(endpoint string) (time.Time, bool) {
	l.mu.RLock()
	e, ok := l.endpoints[endpoint]
	l.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	if e.remaining <= 0 && time.Now().Before(e.resetAt) {
		return e.resetAt, true
	}
	return time.Time{}, false
}

// Remaining returns the tracked remaining budget for an endpoint, or -1 if
// the endpoint has never been seen.
func (l *Ledger) Remaining(endpoint string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.endpoints[endpoint]
	if !ok {
		return -1
	}
	return e.remaining
}
