package worker

import (
	"context"
	"errors"

	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrGatewayUnavailable is returned while the breaker rejects calls.
var ErrGatewayUnavailable = errors.New("refund gateway unavailable")

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// BreakerGateway guards a RefundGateway with a circuit breaker. Only transport
// errors count as failures; a declined refund is a normal answer.
type BreakerGateway struct {
	next    domain.RefundGateway
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerGateway(name string, next domain.RefundGateway, cfg config.BreakerConfig, logger *zerolog.Logger) *BreakerGateway {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.SetBreakerState(cbName, breakerStateValue(to))
			if logger != nil {
				logger.Warn().
					Str("circuit", cbName).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			}
		},
	})
	metrics.SetBreakerState(name, 0)
	return &BreakerGateway{next: next, breaker: cb}
}

func (g *BreakerGateway) Refund(ctx context.Context, req domain.RefundRequest) (models.RefundResult, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Refund(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.RefundResult{}, ErrGatewayUnavailable
	}
	if err != nil {
		return models.RefundResult{}, err
	}
	return out.(models.RefundResult), nil
}

func (g *BreakerGateway) State() gobreaker.State {
	return g.breaker.State()
}
