package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"github.com/lucidlabs/arbot/internal/domain"
)

// Binance places spot market orders and fetches tickers through the Binance
// REST API.
type Binance struct {
	client  *binance.Client
	limiter *rate.Limiter
}

// NewBinance creates a Binance adapter. When sandbox is set, requests go to
// the spot testnet.
func NewBinance(apiKey, secret string, sandbox bool) *Binance {
	binance.UseTestnet = sandbox
	return &Binance{
		client:  binance.NewClient(apiKey, secret),
		limiter: newLimiter(),
	}
}

// Name returns the venue identifier.
func (b *Binance) Name() string { return "binance" }

// CreateMarketBuyOrder submits a market buy for amount base units.
func (b *Binance) CreateMarketBuyOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return b.createOrder(ctx, symbol, amount, binance.SideTypeBuy, domain.OrderSideBuy)
}

// CreateMarketSellOrder submits a market sell for amount base units.
func (b *Binance) CreateMarketSellOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return b.createOrder(ctx, symbol, amount, binance.SideTypeSell, domain.OrderSideSell)
}

func (b *Binance) createOrder(ctx context.Context, symbol string, amount float64, side binance.SideType, resultSide domain.OrderSide) (domain.OrderResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: rate limit wait: %w", err)
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(concatSymbol(symbol)).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(amount, 'f', -1, 64)).
		Do(ctx)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: %s order %s: %w", resultSide, symbol, err)
	}

	result := domain.OrderResult{
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Venue:    b.Name(),
		Symbol:   symbol,
		Side:     resultSide,
		Amount:   amount,
		FilledAt: time.Now().UTC(),
	}
	// Market orders fill across one or more price levels; report the first
	// fill price when the venue returns one.
	if len(resp.Fills) > 0 {
		if p, err := strconv.ParseFloat(resp.Fills[0].Price, 64); err == nil {
			result.FilledPrice = p
		}
	}
	return result, nil
}

// FetchTicker returns the latest 24h ticker for the symbol.
func (b *Binance) FetchTicker(ctx context.Context, symbol string) (domain.MarketSample, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.MarketSample{}, fmt.Errorf("binance: rate limit wait: %w", err)
	}

	stats, err := b.client.NewListPriceChangeStatsService().
		Symbol(concatSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return domain.MarketSample{}, fmt.Errorf("binance: fetch ticker %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return domain.MarketSample{}, fmt.Errorf("binance: fetch ticker %s: %w", symbol, domain.ErrMalformedTicker)
	}

	price, err := strconv.ParseFloat(stats[0].LastPrice, 64)
	if err != nil {
		return domain.MarketSample{}, fmt.Errorf("binance: parse ticker price %q: %w", stats[0].LastPrice, domain.ErrMalformedTicker)
	}
	volume, _ := strconv.ParseFloat(stats[0].Volume, 64)

	return domain.MarketSample{
		Symbol:     symbol,
		Venue:      b.Name(),
		Price:      price,
		Volume:     volume,
		ObservedAt: time.Now().UTC(),
	}, nil
}
