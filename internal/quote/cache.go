package quote

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/models"
)

// DefaultCacheTTL is the maximum age of a cached quote before refetch.
const DefaultCacheTTL = 300 * time.Second

// Cache is a time-bounded memoization of per-symbol quote lookups. Lookups
// for different symbols never block each other; concurrent misses for the
// same symbol collapse to a single provider call.
type Cache struct {
	provider Provider
	ttl      time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry

	now func() time.Time // overridable in tests
}

type cacheEntry struct {
	// fetchMu serializes fetches for one symbol so concurrent misses
	// collapse to a single provider call. The quote fields themselves are
	// guarded by the cache-level mutex.
	fetchMu   sync.Mutex
	quote     models.Quote
	fetchedAt time.Time
	valid     bool
}

// NewCache creates a cache in front of the given provider.
func NewCache(provider Provider, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		logger:   logger.With().Str("component", "quote_cache").Logger(),
		now:      time.Now,
	}
}

// Get returns the quote for a symbol, fetching from the provider on a miss
// or stale entry. A provider failure is returned to the caller and does not
// poison future lookups; the next call retries unconditionally.
func (c *Cache) Get(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)

	c.mu.Lock()
	entry, ok := c.entries[symbol]
	if !ok {
		entry = &cacheEntry{}
		c.entries[symbol] = entry
	}
	if quote, fresh := c.freshQuote(entry); fresh {
		c.mu.Unlock()
		c.logger.Debug().Str("symbol", symbol).Msg("Cache hit")
		return quote, nil
	}
	c.mu.Unlock()

	entry.fetchMu.Lock()
	defer entry.fetchMu.Unlock()

	// Another miss for this symbol may have completed while we waited.
	c.mu.Lock()
	if quote, fresh := c.freshQuote(entry); fresh {
		c.mu.Unlock()
		return quote, nil
	}
	c.mu.Unlock()

	quote, err := c.provider.Fetch(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}

	c.mu.Lock()
	entry.quote = quote
	entry.fetchedAt = c.now()
	entry.valid = true
	c.mu.Unlock()
	return quote, nil
}

// freshQuote reports the entry's quote when it is still within TTL.
// Callers must hold c.mu.
func (c *Cache) freshQuote(entry *cacheEntry) (models.Quote, bool) {
	if entry.valid && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.quote, true
	}
	return models.Quote{}, false
}

// InvalidateAll clears every entry. Used for periodic maintenance.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	c.logger.Info().Msg("Quote cache cleared")
}

// Stats describes the cache contents at a point in time.
type Stats struct {
	TotalEntries   int
	FreshEntries   int
	ExpiredEntries int
	TTL            time.Duration
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{TotalEntries: len(c.entries), TTL: c.ttl}
	now := c.now()
	for _, entry := range c.entries {
		if entry.valid && now.Sub(entry.fetchedAt) < c.ttl {
			stats.FreshEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	return stats
}
