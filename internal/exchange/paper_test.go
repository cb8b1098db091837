package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
)

type fakePrices map[[2]string]domain.MarketSample

func (f fakePrices) Get(symbol, venue string) (domain.MarketSample, bool) {
	s, ok := f[[2]string{symbol, venue}]
	return s, ok
}

func TestPaperFetchTickerMirrorsReference(t *testing.T) {
	prices := fakePrices{
		{"BTC/USDT", "binance"}: {
			Symbol: "BTC/USDT", Venue: "binance", Price: 50000, Volume: 10,
			ObservedAt: time.Now().UTC(),
		},
	}
	p := NewPaper("paper", "binance", 0.8, prices)

	sample, err := p.FetchTicker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "paper", sample.Venue, "mirrored sample is attributed to the paper venue")
	assert.InDelta(t, 50400, sample.Price, 1e-6)
	assert.Equal(t, 10.0, sample.Volume)
}

func TestPaperFetchTickerNoReferenceData(t *testing.T) {
	p := NewPaper("paper", "binance", 0, fakePrices{})
	_, err := p.FetchTicker(context.Background(), "BTC/USDT")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaperFillsAtOwnCachedPrice(t *testing.T) {
	prices := fakePrices{
		{"BTC/USDT", "paper"}: {Symbol: "BTC/USDT", Venue: "paper", Price: 50400},
	}
	p := NewPaper("paper", "binance", 0.8, prices)

	buy, err := p.CreateMarketBuyOrder(context.Background(), "BTC/USDT", 0.02)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideBuy, buy.Side)
	assert.Equal(t, 50400.0, buy.FilledPrice)
	assert.Equal(t, 0.02, buy.Amount)
	assert.NotEmpty(t, buy.OrderID)

	sell, err := p.CreateMarketSellOrder(context.Background(), "BTC/USDT", 0.02)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideSell, sell.Side)
	assert.NotEqual(t, buy.OrderID, sell.OrderID, "order IDs are unique per fill")
}

func TestPaperFillWithoutMarketData(t *testing.T) {
	p := NewPaper("paper", "", 0, fakePrices{})
	_, err := p.CreateMarketBuyOrder(context.Background(), "BTC/USDT", 1)
	assert.Error(t, err)
}

func TestPaperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPaper("paper", "", 0, fakePrices{})
	_, err := p.CreateMarketBuyOrder(ctx, "BTC/USDT", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
