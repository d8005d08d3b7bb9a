// Package penalty tracks per-oracle failure accounting so the engine
// can skip sources that keep failing or are throttling us.
package penalty

import (
	"sync"
	"time"
)

const (
	// FailureThreshold is the number of consecutive failures after
	// which an oracle enters a penalty window.
	FailureThreshold = 5

	// PenaltyDuration is how long a penalized oracle is skipped.
	PenaltyDuration = 1800 * time.Second

	// RateLimitWindow is how long a provider-reported throttle (e.g.
	// HTTP 429) keeps an oracle out of the rotation.
	RateLimitWindow = 60 * time.Second
)

// Policy is the failure-count accounting owned by one oracle adapter.
// Only that adapter's query path mutates it.
type Policy struct {
	mu            sync.Mutex
	failures      int
	lastPenalized time.Time
	now           func() time.Time
}

// NewPolicy creates an empty policy.
func NewPolicy() *Policy {
	return &Policy{now: time.Now}
}

// RecordFailure notes one more consecutive failure. Reaching the
// threshold stamps the penalty window and resets the counter.
func (p *Policy) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures++
	if p.failures >= FailureThreshold {
		p.lastPenalized = p.now()
		p.failures = 0
	}
}

// RecordSuccess resets the consecutive failure counter.
func (p *Policy) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
}

// IsPenalized reports whether the oracle is inside a penalty window.
// Skipping is transient: the oracle stays in the configured order.
func (p *Policy) IsPenalized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastPenalized.IsZero() {
		return false
	}
	return p.now().Sub(p.lastPenalized) <= PenaltyDuration
}

// Failures returns the current consecutive failure count.
func (p *Policy) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// RateLimitTracker remembers the last provider-side throttling signal.
// This is a separate, provider-reported condition from failure-count
// penalization.
type RateLimitTracker struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewRateLimitTracker creates an empty tracker.
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{now: time.Now}
}

// Note records a throttling signal from the provider.
func (t *RateLimitTracker) Note() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
}

// LimitedInLast reports whether a throttle was seen within the window.
func (t *RateLimitTracker) LimitedInLast(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last.IsZero() {
		return false
	}
	return t.now().Sub(t.last) <= window
}
