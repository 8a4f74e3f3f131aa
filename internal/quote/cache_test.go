package quote

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// countingProvider counts Fetch calls and can be made to fail.
type countingProvider struct {
	mu      sync.Mutex
	calls   map[string]int
	failErr error
	price   float64
	delay   time.Duration
}

func newCountingProvider(price float64) *countingProvider {
	return &countingProvider{calls: make(map[string]int), price: price}
}

func (p *countingProvider) Fetch(_ context.Context, symbol string) (models.Quote, error) {
	p.mu.Lock()
	p.calls[symbol]++
	failErr := p.failErr
	price := p.price
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failErr != nil {
		return models.Quote{}, failErr
	}
	return models.Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: 100,
		FetchedAt:     time.Now(),
	}, nil
}

func (p *countingProvider) Validate(_ context.Context, symbol string) (string, error) {
	return symbol, nil
}

func (p *countingProvider) callCount(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

func TestCache_HitWithinTTL(t *testing.T) {
	provider := newCountingProvider(105)
	cache := NewCache(provider, 300*time.Second, zerolog.Nop())

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	q1, err := cache.Get(context.Background(), "VOO")
	require.NoError(t, err)

	// 299 seconds later the entry is still fresh.
	cache.now = func() time.Time { return base.Add(299 * time.Second) }
	q2, err := cache.Get(context.Background(), "VOO")
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, 1, provider.callCount("VOO"), "fresh hit must not call the provider")
}

func TestCache_RefetchAfterTTL(t *testing.T) {
	provider := newCountingProvider(105)
	cache := NewCache(provider, 300*time.Second, zerolog.Nop())

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	_, err := cache.Get(context.Background(), "VOO")
	require.NoError(t, err)

	cache.now = func() time.Time { return base.Add(300 * time.Second) }
	_, err = cache.Get(context.Background(), "VOO")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount("VOO"), "expired entry must refetch")
}

func TestCache_CaseInsensitiveKeys(t *testing.T) {
	provider := newCountingProvider(105)
	cache := NewCache(provider, time.Minute, zerolog.Nop())

	_, err := cache.Get(context.Background(), "voo")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "VOO")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount("VOO"))
}

func TestCache_FailureNotCached(t *testing.T) {
	provider := newCountingProvider(105)
	cache := NewCache(provider, time.Minute, zerolog.Nop())

	provider.failErr = errors.NewFetchError("fake", "VOO", fmt.Errorf("timeout"))
	_, err := cache.Get(context.Background(), "VOO")
	require.Error(t, err)

	// The failure must not serve as a cached value; the next call retries
	// and succeeds.
	provider.failErr = nil
	q, err := cache.Get(context.Background(), "VOO")
	require.NoError(t, err)
	assert.Equal(t, 105.0, q.Price)
	assert.Equal(t, 2, provider.callCount("VOO"))
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	provider := newCountingProvider(105)
	provider.delay = 20 * time.Millisecond
	cache := NewCache(provider, time.Minute, zerolog.Nop())

	const n = 8
	var wg sync.WaitGroup
	var failed atomic.Bool
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background(), "VOO"); err != nil {
				failed.Store(true)
			}
		}()
	}
	wg.Wait()

	require.False(t, failed.Load())
	assert.Equal(t, 1, provider.callCount("VOO"), "same-symbol misses must collapse to one fetch")
}

func TestCache_Stats(t *testing.T) {
	provider := newCountingProvider(105)
	cache := NewCache(provider, 300*time.Second, zerolog.Nop())

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	_, err := cache.Get(context.Background(), "VOO")
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "SPY")
	require.NoError(t, err)

	cache.now = func() time.Time { return base.Add(301 * time.Second) }
	_, err = cache.Get(context.Background(), "QQQM")
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 2, stats.ExpiredEntries)

	cache.InvalidateAll()
	assert.Zero(t, cache.Stats().TotalEntries)
}
