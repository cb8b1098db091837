package detector

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
	"github.com/lucidlabs/arbot/internal/marketdata"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDetector(cfg Config, cache *marketdata.Cache) (*Detector, chan domain.ArbitrageOpportunity, *events.Bus) {
	if cfg.MaxTradeAmount == 0 {
		cfg.MaxTradeAmount = 1000
	}
	if cfg.VolumeHardCap == 0 {
		cfg.VolumeHardCap = 1000
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	out := make(chan domain.ArbitrageOpportunity, 16)
	bus := events.NewBus()
	return New(cfg, cache, out, bus, testLogger()), out, bus
}

func put(c *marketdata.Cache, symbol, venue string, price float64) {
	c.Put(domain.MarketSample{
		Symbol:     symbol,
		Venue:      venue,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	})
}

func TestScanEmitsOpportunity(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "kraken", 50500)

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0.5}, cache)
	defer bus.Close()
	busCh, cancel := bus.Subscribe()
	defer cancel()

	d.scanSymbol("BTC/USDT")

	var opp domain.ArbitrageOpportunity
	select {
	case opp = <-out:
	default:
		t.Fatal("no opportunity emitted")
	}

	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, "BTC/USDT", opp.Symbol)
	assert.Equal(t, "binance", opp.BuyVenue)
	assert.Equal(t, "kraken", opp.SellVenue)
	assert.Equal(t, 50000.0, opp.BuyPrice)
	assert.Equal(t, 50500.0, opp.SellPrice)
	assert.InDelta(t, 500.0, opp.Profit, 1e-9)
	assert.InDelta(t, 1.0, opp.ProfitPercentage, 1e-9)
	assert.False(t, opp.Executed)
	assert.False(t, opp.DetectedAt.IsZero())

	// Mirrored onto the bus.
	select {
	case ev := <-busCh:
		require.Equal(t, events.TypeOpportunityFound, ev.Type)
		busOpp, ok := ev.Payload.(domain.ArbitrageOpportunity)
		require.True(t, ok)
		assert.Equal(t, opp.ID, busOpp.ID)
	default:
		t.Fatal("no event published")
	}
}

func TestScanNeedsTwoVenues(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	assert.Empty(t, out)
}

func TestScanBelowThresholdDiscarded(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "kraken", 50100) // 0.2% spread

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0.5}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	assert.Empty(t, out)
}

func TestScanTieBreakFirstVenueWins(t *testing.T) {
	cache := marketdata.NewCache()
	// Two venues at the identical minimum price: the lexicographically-first
	// one is the buy side because the scan only replaces on strict improvement.
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "coinbase", 50000)
	put(cache, "BTC/USDT", "kraken", 50500)

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	opp := <-out
	assert.Equal(t, "binance", opp.BuyVenue)
	assert.Equal(t, "kraken", opp.SellVenue)
}

func TestScanVolumeBounds(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "kraken", 51000)

	d, out, bus := newTestDetector(Config{
		MinProfitThreshold: 0,
		MaxTradeAmount:     1000,
		VolumeHardCap:      1000,
	}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	opp := <-out
	// Notional bound: 1000 / 50000.
	assert.InDelta(t, 0.02, opp.TradeVolume, 1e-9)

	// Hard cap binds for cheap assets.
	put(cache, "DOGE/USDT", "binance", 0.1)
	put(cache, "DOGE/USDT", "kraken", 0.2)
	d.scanSymbol("DOGE/USDT")
	opp = <-out
	assert.Equal(t, 1000.0, opp.TradeVolume)
}

func TestScanConfidenceCapped(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 100)
	put(cache, "BTC/USDT", "kraken", 103) // 3% spread -> confidence 0.3

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	opp := <-out
	assert.InDelta(t, 0.3, opp.ConfidenceScore, 1e-9)

	put(cache, "ETH/USDT", "binance", 100)
	put(cache, "ETH/USDT", "kraken", 120) // 20% spread -> capped at 1
	d.scanSymbol("ETH/USDT")
	opp = <-out
	assert.Equal(t, 1.0, opp.ConfidenceScore)
}

func TestScanCooldownSuppressesDuplicates(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "kraken", 50500)

	d, out, bus := newTestDetector(Config{
		MinProfitThreshold: 0,
		Cooldown:           time.Minute,
	}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	d.scanSymbol("BTC/USDT")

	require.Len(t, out, 1, "second scan inside the cooldown must be suppressed")
}

func TestScanNoCooldownEmitsDuplicates(t *testing.T) {
	cache := marketdata.NewCache()
	put(cache, "BTC/USDT", "binance", 50000)
	put(cache, "BTC/USDT", "kraken", 50500)

	d, out, bus := newTestDetector(Config{MinProfitThreshold: 0}, cache)
	defer bus.Close()

	d.scanSymbol("BTC/USDT")
	d.scanSymbol("BTC/USDT")
	assert.Len(t, out, 2)
}

func TestTriggerNeverBlocks(t *testing.T) {
	cache := marketdata.NewCache()
	d, _, bus := newTestDetector(Config{MinProfitThreshold: 0}, cache)
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			d.Trigger("BTC/USDT")
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Trigger blocked with a full queue")
	}
}
