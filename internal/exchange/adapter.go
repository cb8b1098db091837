// Package exchange provides the uniform adapter interface through which the
// engine places market orders and fetches tickers on a venue, one concrete
// implementation per venue, selected by a factory keyed on venue name.
package exchange

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/lucidlabs/arbot/internal/domain"
)

// Adapter is the capability interface for one trading venue. Implementations
// must be safe for concurrent use; the executor may run multiple trades
// against the same venue at once.
type Adapter interface {
	// Name returns the venue identifier, e.g. "binance".
	Name() string
	// CreateMarketBuyOrder submits a market buy for amount base units.
	CreateMarketBuyOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error)
	// CreateMarketSellOrder submits a market sell for amount base units.
	CreateMarketSellOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error)
	// FetchTicker returns the venue's latest price/volume for the symbol.
	FetchTicker(ctx context.Context, symbol string) (domain.MarketSample, error)
}

// requestsPerSecond is the default per-venue request budget. Venue rate limits
// differ, but all public limits comfortably exceed this.
const requestsPerSecond = 10

func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
}

// concatSymbol converts an engine symbol like "BTC/USDT" to the venue forms
// "BTCUSDT" (binance, kraken) or "BTC-USDT" (coinbase).
func concatSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func dashSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}
