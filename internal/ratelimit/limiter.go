// Package ratelimit enforces per-caller request quotas over fixed
// minute and day windows.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Config sets the window maxima and the failure posture.
type Config struct {
	PerMinute int
	PerDay    int

	// FailOpen admits requests when the limiter cannot make a sound
	// decision (misconfiguration, clock anomaly). Default is false:
	// the limiter denies in doubt, preserving its protective intent.
	FailOpen bool
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

type window struct {
	minuteCount int
	minuteStart time.Time
	dayCount    int
	dayStart    time.Time
}

// Limiter tracks per-caller request counts. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	clock   func() time.Time
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		clock:   time.Now,
	}
}

// Admit checks both windows for the caller. On admission both counters
// increment atomically with the decision; a denial increments nothing.
func (l *Limiter) Admit(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.PerMinute <= 0 || l.cfg.PerDay <= 0 {
		if l.cfg.FailOpen {
			return Decision{Allowed: true}
		}
		return Decision{Allowed: false, Reason: "rate limiter misconfigured"}
	}

	now := l.clock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{minuteStart: now, dayStart: now}
		l.windows[key] = w
	}
	l.roll(w, now)

	if w.minuteCount >= l.cfg.PerMinute {
		retry := w.minuteStart.Add(time.Minute).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{
			Allowed:    false,
			RetryAfter: retry,
			Reason:     fmt.Sprintf("rate limit exceeded: %d requests per minute", l.cfg.PerMinute),
		}
	}
	if w.dayCount >= l.cfg.PerDay {
		retry := w.dayStart.Add(24 * time.Hour).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{
			Allowed:    false,
			RetryAfter: retry,
			Reason:     fmt.Sprintf("rate limit exceeded: %d requests per day", l.cfg.PerDay),
		}
	}

	w.minuteCount++
	w.dayCount++
	return Decision{Allowed: true}
}

// roll resets any window whose duration has fully elapsed. A clock that
// moved backwards leaves windows open rather than resetting them.
func (l *Limiter) roll(w *window, now time.Time) {
	if now.Sub(w.minuteStart) >= time.Minute {
		w.minuteCount = 0
		w.minuteStart = now
	}
	if now.Sub(w.dayStart) >= 24*time.Hour {
		w.dayCount = 0
		w.dayStart = now
	}
}

// Quota reports the caller's remaining requests in both windows.
type Quota struct {
	PerMinute          int
	PerDay             int
	RemainingPerMinute int
	RemainingPerDay    int
}

// Remaining returns the caller's quota without consuming any of it.
func (l *Limiter) Remaining(key string) Quota {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := Quota{
		PerMinute:          l.cfg.PerMinute,
		PerDay:             l.cfg.PerDay,
		RemainingPerMinute: l.cfg.PerMinute,
		RemainingPerDay:    l.cfg.PerDay,
	}
	w, ok := l.windows[key]
	if !ok {
		return q
	}
	l.roll(w, l.clock())

	q.RemainingPerMinute = l.cfg.PerMinute - w.minuteCount
	if q.RemainingPerMinute < 0 {
		q.RemainingPerMinute = 0
	}
	q.RemainingPerDay = l.cfg.PerDay - w.dayCount
	if q.RemainingPerDay < 0 {
		q.RemainingPerDay = 0
	}
	return q
}
