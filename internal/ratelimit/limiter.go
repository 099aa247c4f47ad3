// Package ratelimit throttles expensive per-user actions (match assembly,
// suggestion generation, connection requests) with fixed Redis windows.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuslink/matchmaker/internal/logging"
)

// Rule is one fixed-window policy. Counters live under Key+identifier.
type Rule struct {
	Key    string        // e.g. "rl:match:"
	Limit  int           // max count in the window
	Window time.Duration // window length
}

// Standard rules.
var (
	// RuleMatch allows 30 match requests per minute per user.
	RuleMatch = Rule{Key: "rl:match:", Limit: 30, Window: time.Minute}

	// RuleSuggest allows 10 suggestion requests per minute per user. Each one
	// may reach the text-generation service.
	RuleSuggest = Rule{Key: "rl:suggest:", Limit: 10, Window: time.Minute}

	// RuleConnect allows 20 connection requests per hour per user.
	RuleConnect = Rule{Key: "rl:connect:", Limit: 20, Window: time.Hour}
)

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration // time until the window closes
}

// Limiter counts actions in Redis. A nil Limiter or one without a client
// allows everything.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by client, which may be nil.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Enabled reports whether the limiter is backed by Redis.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Take counts one action for identifier under rule. Redis failures fail open:
// the decision allows the action and the error is returned for logging.
func (l *Limiter) Take(ctx context.Context, identifier string, rule Rule) (Decision, error) {
	open := Decision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit, Reset: rule.Window}
	if !l.Enabled() {
		return open, nil
	}
	key := rule.Key + identifier

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	})
	if err != nil {
		logging.For("ratelimit").Warn().Err(err).Str("key", key).Msg("redis pipeline failed, failing open")
		return open, err
	}

	reset := ttl.Val()
	// A counter without expiry would throttle the identifier forever, so the
	// first hit (or a lost EXPIRE) starts the window.
	if reset < 0 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			logging.For("ratelimit").Warn().Err(err).Str("key", key).Msg("redis EXPIRE failed, failing open")
			l.client.Del(ctx, key)
			return open, err
		}
		reset = rule.Window
	}

	count := int(incr.Val())
	return Decision{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		Reset:     reset,
	}, nil
}
