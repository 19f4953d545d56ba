package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Tracker counts requests per owner in fixed one-minute windows stored in
// Redis, so every replica enforces the same budget. The burst allowance is
// added on top of the per-minute budget.
type Tracker struct {
	redis  *redis.Client
	policy Policy
	logger zerolog.Logger
	window time.Duration
	now    func() time.Time
}

// NewTracker creates a Redis backed limiter.
func NewTracker(redisClient *redis.Client, policy Policy, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		policy: policy.normalized(),
		logger: logger,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow increments owner's counter for the current window.
func (t *Tracker) Allow(ctx context.Context, owner string) (State, error) {
	now := t.now()
	start := now.Truncate(t.window)
	resetAt := start.Add(t.window)
	key := windowKey(owner, start)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, resetAt.Sub(now)+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		ratelimitErrors.Inc()
		return State{}, fmt.Errorf("count request for %s: %w", owner, err)
	}

	budget := t.policy.RequestsPerMinute + t.policy.Burst
	count := int(incr.Val())
	state := State{
		Owner:     owner,
		Allowed:   count <= budget,
		Remaining: max(budget-count, 0),
		ResetAt:   resetAt,
	}

	if !state.Allowed {
		ratelimitDecisions.WithLabelValues("redis", "rejected").Inc()
		t.logger.Warn().
			Str("owner", owner).
			Int("count", count).
			Time("reset_at", resetAt).
			Msg("Request rejected by shared rate limit")
		return state, nil
	}

	ratelimitDecisions.WithLabelValues("redis", "allowed").Inc()
	if state.Remaining < t.policy.Burst {
		t.logger.Debug().
			Str("owner", owner).
			Int("remaining", state.Remaining).
			Msg("Owner close to rate limit")
	}
	return state, nil
}

// Usage returns owner's request count in the current window without
// counting a request.
func (t *Tracker) Usage(ctx context.Context, owner string) (int, error) {
	key := windowKey(owner, t.now().Truncate(t.window))
	n, err := t.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage for %s: %w", owner, err)
	}
	return n, nil
}
