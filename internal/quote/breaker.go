package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// CircuitState represents the state of the provider circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Failing, rejecting requests
	CircuitHalfOpen CircuitState = "HALF_OPEN" // Testing if the provider recovered
)

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// SuccessThreshold is the number of successes in half-open state to close.
	SuccessThreshold int
	// Timeout is how long to wait before probing an open circuit.
	Timeout time.Duration
}

// DefaultBreakerConfig returns sensible defaults for a quote provider.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// ErrProviderUnavailable is returned while the circuit is open.
var ErrProviderUnavailable = fmt.Errorf("quote provider temporarily unavailable")

// Breaker wraps a Provider with the circuit breaker pattern so a provider
// outage stops producing one slow failure per symbol per cycle.
type Breaker struct {
	inner  Provider
	config BreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time

	now func() time.Time // overridable in tests
}

// NewBreaker wraps provider with circuit breaker protection.
func NewBreaker(provider Provider, config BreakerConfig) *Breaker {
	return &Breaker{
		inner:  provider,
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fetch delegates to the wrapped provider when the circuit allows it.
func (b *Breaker) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	if err := b.allow(); err != nil {
		return models.Quote{}, errors.NewFetchError("breaker", symbol, err)
	}
	q, err := b.inner.Fetch(ctx, symbol)
	b.record(err)
	return q, err
}

// Validate delegates to the wrapped provider when the circuit allows it.
func (b *Breaker) Validate(ctx context.Context, symbol string) (string, error) {
	if err := b.allow(); err != nil {
		return "", errors.NewFetchError("breaker", symbol, err)
	}
	name, err := b.inner.Validate(ctx, symbol)
	b.record(err)
	return name, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) >= b.config.Timeout {
			b.state = CircuitHalfOpen
			b.successes = 0
			return nil
		}
		return ErrProviderUnavailable
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// An unknown ticker is the caller's problem, not a provider outage.
	if err != nil && errors.Is(err, errors.ErrInvalidSymbol) {
		err = nil
	}

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == CircuitHalfOpen || b.failures >= b.config.FailureThreshold {
			b.state = CircuitOpen
		}
		return
	}

	switch b.state {
	case CircuitHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = CircuitClosed
			b.failures = 0
		}
	case CircuitClosed:
		b.failures = 0
	}
}
