package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/zombor/invoice-review/internal/invoice"
)

// ErrUnavailable is returned while the model is being shielded from calls
// after repeated failures
var ErrUnavailable = errors.New("extraction model unavailable")

// GuardConfig bounds calls to a model
type GuardConfig struct {
	// RatePerMinute is the steady call rate; zero disables rate limiting
	RatePerMinute int
	// Burst is the number of calls allowed at once
	Burst int
	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// Guarded wraps an Extractor with a rate limiter and a circuit breaker
type Guarded struct {
	next    Extractor
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*invoice.Invoice]
}

// NewGuarded wraps next
func NewGuarded(next Extractor, cfg GuardConfig) *Guarded {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60)
	}

	settings := gobreaker.Settings{
		Name:        "extraction",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// a cancelled request says nothing about the model
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	return &Guarded{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[*invoice.Invoice](settings),
	}
}

// Extract waits for the rate limiter, then calls the wrapped extractor
// through the breaker
func (g *Guarded) Extract(ctx context.Context, doc Document) (*invoice.Invoice, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	inv, err := g.breaker.Execute(func() (*invoice.Invoice, error) {
		return g.next.Extract(ctx, doc)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return inv, err
}

// Close closes the wrapped extractor
func (g *Guarded) Close() error {
	return g.next.Close()
}
