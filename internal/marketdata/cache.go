// Package marketdata provides the thread-safe last-value store that holds the
// most recent price sample per (symbol, venue) pair. The feed manager is the
// only writer and the detector the only reader; cardinality is bounded by the
// tracked symbol and venue sets, so entries are never evicted, only
// overwritten.
package marketdata

import (
	"sort"
	"sync"

	"github.com/lucidlabs/arbot/internal/domain"
)

type key struct {
	symbol string
	venue  string
}

// Cache is a concurrent last-value store of market samples.
type Cache struct {
	mu      sync.RWMutex
	samples map[key]domain.MarketSample
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{samples: make(map[key]domain.MarketSample)}
}

// Put overwrites the entry for (sample.Symbol, sample.Venue).
func (c *Cache) Put(sample domain.MarketSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[key{sample.Symbol, sample.Venue}] = sample
}

// Get returns the latest sample for the given key, if any.
func (c *Cache) Get(symbol, venue string) (domain.MarketSample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.samples[key{symbol, venue}]
	return s, ok
}

// VenuePrices returns the (venue, price) pairs currently known for a symbol,
// sorted by venue name so readers see a deterministic order.
func (c *Cache) VenuePrices(symbol string) []domain.VenuePrice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var prices []domain.VenuePrice
	for k, s := range c.samples {
		if k.symbol == symbol {
			prices = append(prices, domain.VenuePrice{Venue: k.venue, Price: s.Price})
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Venue < prices[j].Venue })
	return prices
}

// Samples returns every sample currently held, sorted by symbol then venue.
func (c *Cache) Samples() []domain.MarketSample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.MarketSample, 0, len(c.samples))
	for _, s := range c.samples {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Venue < out[j].Venue
	})
	return out
}

// Len returns the number of (symbol, venue) entries held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples)
}
