package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ratelimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_ratelimit_decisions_total",
		Help: "Total admission decisions by backend and outcome (allowed, rejected)",
	}, []string{"backend", "outcome"})

	ratelimitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptdeck_ratelimit_backend_errors_total",
		Help: "Total admission checks that failed to reach the shared backend",
	})
)

// Limiter decides whether a request of owner may proceed.
type Limiter interface {
	Allow(ctx context.Context, owner string) (State, error)
}

// Local keeps one token bucket per owner in memory.
type Local struct {
	policy  Policy
	logger  zerolog.Logger
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewLocal creates an in-process limiter.
func NewLocal(policy Policy, logger zerolog.Logger) *Local {
	return &Local{
		policy:  policy.normalized(),
		logger:  logger,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow consumes a token of owner's bucket if one is available.
func (l *Local) Allow(_ context.Context, owner string) (State, error) {
	l.mu.Lock()
	b, ok := l.buckets[owner]
	if !ok {
		b = rate.NewLimiter(rate.Limit(float64(l.policy.RequestsPerMinute)/60), l.policy.Burst)
		l.buckets[owner] = b
	}
	l.mu.Unlock()

	now := time.Now()
	r := b.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		ratelimitDecisions.WithLabelValues("local", "rejected").Inc()
		l.logger.Warn().
			Str("owner", owner).
			Dur("retry_after", delay).
			Msg("Request rejected by rate limit")
		return State{Owner: owner, ResetAt: now.Add(delay)}, nil
	}

	ratelimitDecisions.WithLabelValues("local", "allowed").Inc()
	return State{
		Owner:     owner,
		Allowed:   true,
		Remaining: int(b.TokensAt(now)),
		ResetAt:   now,
	}, nil
}
