package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// RateLimiter enforces per-client request rates and daily quotas.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxCharsPerDay    int64

	// clients is ordered by lastSeen, oldest first.
	clients *simplelru.LRU
	now     func() time.Time
}

// ClientUsage tracks usage for one client within the current windows.
type ClientUsage struct {
	RequestsThisMinute int
	RequestsThisHour   int
	RequestsToday      int
	CharsToday         int64

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
	lastSeen    time.Time
}

// maxTrackedClients bounds the number of clients tracked at once. When it is
// reached the least recently seen client is forgotten.
const maxTrackedClients = 10000

// NewRateLimiter creates a rate limiter. A zero limit is not enforced.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxCharsPerDay int64) *RateLimiter {
	return newRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay, maxCharsPerDay, maxTrackedClients)
}

func newRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxCharsPerDay int64, capacity int) *RateLimiter {
	if capacity <= 0 {
		capacity = maxTrackedClients
	}
	// NewLRU fails only for a non-positive size.
	clients, _ := simplelru.NewLRU(capacity, nil)
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxCharsPerDay:    maxCharsPerDay,
		clients:           clients,
		now:               time.Now,
	}
}

// CheckRateLimit records one request of chars characters for clientID, or
// returns a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(clientID string, chars int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := rl.getOrCreate(clientID, now)
	rl.rollWindows(usage, now)

	if rl.requestsPerMinute > 0 && usage.RequestsThisMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: usage.minuteStart.Add(time.Minute).Sub(now),
		}
	}
	if rl.requestsPerHour > 0 && usage.RequestsThisHour >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: usage.hourStart.Add(time.Hour).Sub(now),
		}
	}

	resets := nextMidnight(now)
	if rl.maxRequestsPerDay > 0 && usage.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.maxCharsPerDay > 0 && usage.CharsToday+chars > rl.maxCharsPerDay {
		return &QuotaExceededError{
			Type:   "chars",
			Limit:  rl.maxCharsPerDay,
			Used:   usage.CharsToday,
			Resets: resets,
		}
	}

	usage.RequestsThisMinute++
	usage.RequestsThisHour++
	usage.RequestsToday++
	usage.CharsToday += chars
	return nil
}

func (rl *RateLimiter) rollWindows(usage *ClientUsage, now time.Time) {
	if now.Sub(usage.minuteStart) >= time.Minute {
		usage.RequestsThisMinute = 0
		usage.minuteStart = now
	}
	if now.Sub(usage.hourStart) >= time.Hour {
		usage.RequestsThisHour = 0
		usage.hourStart = now
	}
	if !sameDay(now, usage.dayStart) {
		usage.RequestsToday = 0
		usage.CharsToday = 0
		usage.dayStart = now
	}
}

// getOrCreate returns the usage for clientID and marks it most recently
// seen. Adding a client to a full table evicts the oldest one.
func (rl *RateLimiter) getOrCreate(clientID string, now time.Time) *ClientUsage {
	var usage *ClientUsage
	if v, ok := rl.clients.Get(clientID); ok {
		usage = v.(*ClientUsage)
	} else {
		usage = &ClientUsage{minuteStart: now, hourStart: now, dayStart: now}
		rl.clients.Add(clientID, usage)
	}
	usage.lastSeen = now
	return usage
}

// GetUsage returns a copy of the usage recorded for clientID.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Peek(clientID); ok {
		return *v.(*ClientUsage)
	}
	return ClientUsage{}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.clients.Len()
}

// Prune drops clients idle for at least maxIdle and returns how many were
// removed.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.pruneLocked(rl.now(), maxIdle)
}

func (rl *RateLimiter) pruneLocked(now time.Time, maxIdle time.Duration) int {
	removed := 0
	for {
		_, v, ok := rl.clients.GetOldest()
		if !ok || now.Sub(v.(*ClientUsage).lastSeen) < maxIdle {
			return removed
		}
		rl.clients.RemoveOldest()
		removed++
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "chars"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
