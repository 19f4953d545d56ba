// Package ratelimit gates API requests per owner. Local keeps token buckets
// in process; Tracker shares fixed-window counters between server replicas
// through Redis.
package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// RedisKeyPrefix prefixes every window counter stored in Redis.
const RedisKeyPrefix = "promptdeck:ratelimit"

// Policy defaults.
const (
	// DefaultRequestsPerMinute is the sustained per-owner budget.
	DefaultRequestsPerMinute = 120

	// DefaultBurst is how many requests may arrive at once.
	DefaultBurst = 20
)

// Policy is a per-owner request budget.
type Policy struct {
	RequestsPerMinute int
	Burst             int
}

// DefaultPolicy returns the budget used when none is configured.
func DefaultPolicy() Policy {
	return Policy{RequestsPerMinute: DefaultRequestsPerMinute, Burst: DefaultBurst}
}

func (p Policy) normalized() Policy {
	if p.RequestsPerMinute <= 0 {
		p.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if p.Burst <= 0 {
		p.Burst = DefaultBurst
	}
	return p
}

// State is the outcome of one admission check.
type State struct {
	// Owner is the account the request was counted against.
	Owner string `json:"owner"`

	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the budget is replenished enough for another request.
	ResetAt time.Time `json:"reset_at"`
}

// TimeUntilReset returns the duration until ResetAt, or 0 if it has passed.
func (s State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// RetryAfterSeconds renders TimeUntilReset for a Retry-After header.
// It never returns less than one second.
func (s State) RetryAfterSeconds() string {
	secs := int(math.Ceil(s.TimeUntilReset().Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}

// windowKey returns the Redis counter key of owner for the window starting at start.
func windowKey(owner string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", RedisKeyPrefix, owner, start.Unix())
}
