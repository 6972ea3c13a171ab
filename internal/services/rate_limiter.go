package services

import (
	"sync"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/structures"
)

type RateLimiterInterface interface {
	Allow(userID int64) bool
}

// RateLimiter admits at most limit calls per user within a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  map[int64][]time.Time
	now    func() time.Time
}

func (r *RateLimiter) Allow(userID int64) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	calls := r.calls[userID]
	i := 0
	for i < len(calls) && now.Sub(calls[i]) > r.window {
		i++
	}
	calls = calls[i:]

	if len(calls) >= r.limit {
		r.calls[userID] = calls
		return false
	}
	r.calls[userID] = append(calls, now)
	return true
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		calls:  make(map[int64][]time.Time),
		now:    time.Now,
	}
}

// NewCommandRateLimiter limits each user to scheduler.commandsPerMinute commands.
func NewCommandRateLimiter(conf *structures.Config) RateLimiterInterface {
	return NewRateLimiter(conf.Scheduler.CommandsPerMinute, time.Minute)
}
