package middleware

import (
	"sync"
	"time"
)

// Bucket is a class of traffic with its own budget. Answer taps come in
// bursts during a session and must not use up the command budget.
type Bucket int

const (
	Commands Bucket = iota
	Answers
)

// Limit allows Requests per sliding Window. A zero Requests disables it.
type Limit struct {
	Requests int
	Window   time.Duration
}

type bucketKey struct {
	userID int64
	bucket Bucket
}

// idle keys are swept every sweepEvery calls to Allow
const sweepEvery = 1024

// RateLimiter caps requests per user and bucket over a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[Bucket]Limit
	hits   map[bucketKey][]time.Time
	calls  int

	now func() time.Time
}

func NewRateLimiter(commands, answers Limit) *RateLimiter {
	return &RateLimiter{
		limits: map[Bucket]Limit{Commands: commands, Answers: answers},
		hits:   make(map[bucketKey][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request. When the bucket is full it returns false and
// how long until the oldest request leaves the window.
func (rl *RateLimiter) Allow(userID int64, b Bucket) (bool, time.Duration) {
	limit := rl.limits[b]
	if limit.Requests <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweep(now)
	}

	k := bucketKey{userID: userID, bucket: b}
	recent := trim(rl.hits[k], now.Add(-limit.Window))
	if len(recent) >= limit.Requests {
		rl.hits[k] = recent
		return false, recent[0].Add(limit.Window).Sub(now)
	}
	rl.hits[k] = append(recent, now)
	return true, 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	for k, times := range rl.hits {
		recent := trim(times, now.Add(-rl.limits[k.bucket].Window))
		if len(recent) == 0 {
			delete(rl.hits, k)
			continue
		}
		rl.hits[k] = recent
	}
}

// trim drops hits at or before cutoff. times is ordered oldest first.
func trim(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
