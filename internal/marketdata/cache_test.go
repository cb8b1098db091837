package marketdata

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
)

func sample(symbol, venue string, price float64) domain.MarketSample {
	return domain.MarketSample{
		Symbol:     symbol,
		Venue:      venue,
		Price:      price,
		Volume:     12.5,
		ObservedAt: time.Now().UTC(),
	}
}

func TestCachePutOverwrites(t *testing.T) {
	c := NewCache()
	c.Put(sample("BTC/USDT", "binance", 50000))
	c.Put(sample("BTC/USDT", "binance", 50100))

	got, ok := c.Get("BTC/USDT", "binance")
	require.True(t, ok)
	assert.Equal(t, 50100.0, got.Price)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetMissing(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("BTC/USDT", "kraken")
	assert.False(t, ok)
}

func TestVenuePricesSortedByVenue(t *testing.T) {
	c := NewCache()
	c.Put(sample("BTC/USDT", "kraken", 50200))
	c.Put(sample("BTC/USDT", "binance", 50000))
	c.Put(sample("BTC/USDT", "coinbase", 50100))
	c.Put(sample("ETH/USDT", "binance", 3000))

	prices := c.VenuePrices("BTC/USDT")
	require.Len(t, prices, 3)
	assert.Equal(t, []domain.VenuePrice{
		{Venue: "binance", Price: 50000},
		{Venue: "coinbase", Price: 50100},
		{Venue: "kraken", Price: 50200},
	}, prices)
}

func TestSamplesSorted(t *testing.T) {
	c := NewCache()
	c.Put(sample("ETH/USDT", "binance", 3000))
	c.Put(sample("BTC/USDT", "kraken", 50200))
	c.Put(sample("BTC/USDT", "binance", 50000))

	all := c.Samples()
	require.Len(t, all, 3)
	assert.Equal(t, "BTC/USDT", all[0].Symbol)
	assert.Equal(t, "binance", all[0].Venue)
	assert.Equal(t, "BTC/USDT", all[1].Symbol)
	assert.Equal(t, "kraken", all[1].Venue)
	assert.Equal(t, "ETH/USDT", all[2].Symbol)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			venue := fmt.Sprintf("venue%d", n)
			for j := 0; j < 100; j++ {
				c.Put(sample("BTC/USDT", venue, float64(j)))
				c.Get("BTC/USDT", venue)
				c.VenuePrices("BTC/USDT")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
