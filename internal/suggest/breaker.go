package suggest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a Generator.
type BreakerConfig struct {
	MaxRequests      uint32        // calls allowed while half-open
	Interval         time.Duration // closed-state count reset period, 0 never resets
	Timeout          time.Duration // open period before probing again
	FailureThreshold uint32        // consecutive failures that open the circuit
}

// BreakerGenerator guards a Generator with a circuit breaker. While the
// circuit is open Generate fails fast with gobreaker.ErrOpenState.
type BreakerGenerator struct {
	next   Generator
	cb     *gobreaker.CircuitBreaker[string]
	logger zerolog.Logger
}

// NewBreakerGenerator wraps next.
func NewBreakerGenerator(next Generator, cfg BreakerConfig) *BreakerGenerator {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	b := &BreakerGenerator{next: next, logger: logging.For("suggest")}
	metrics.GeneratorBreakerState.Set(0)

	b.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "text-generator",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.GeneratorBreakerState.Set(stateValue(to))
		},
	})
	return b
}

// Generate calls the wrapped Generator through the breaker.
func (b *BreakerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, prompt)
	})
}

// State returns the current breaker state.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
