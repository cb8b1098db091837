package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lucidlabs/arbot/internal/domain"
)

// PriceSource supplies the reference price a paper order fills at. The
// market-data cache satisfies this interface.
type PriceSource interface {
	Get(symbol, venue string) (domain.MarketSample, bool)
}

// Paper simulates immediate fills at the venue's last cached price without
// touching any real exchange. Its ticker mirrors a reference venue's price,
// shifted by offsetPct, so a development config with one live feed still
// produces two distinct venue prices. It backs the "paper" venue and is the
// default adapter in development configs.
type Paper struct {
	name      string
	refVenue  string
	offsetPct float64
	prices    PriceSource
	counter   atomic.Int64
}

// NewPaper creates a paper adapter registered under the given venue name.
// refVenue names the venue whose cached price the ticker mirrors; when empty,
// the paper venue's own cache entry is used.
func NewPaper(name, refVenue string, offsetPct float64, prices PriceSource) *Paper {
	return &Paper{name: name, refVenue: refVenue, offsetPct: offsetPct, prices: prices}
}

// Name returns the venue identifier.
func (p *Paper) Name() string { return p.name }

// CreateMarketBuyOrder fills immediately at the last cached price.
func (p *Paper) CreateMarketBuyOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return p.fill(ctx, symbol, amount, domain.OrderSideBuy)
}

// CreateMarketSellOrder fills immediately at the last cached price.
func (p *Paper) CreateMarketSellOrder(ctx context.Context, symbol string, amount float64) (domain.OrderResult, error) {
	return p.fill(ctx, symbol, amount, domain.OrderSideSell)
}

func (p *Paper) fill(ctx context.Context, symbol string, amount float64, side domain.OrderSide) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderResult{}, err
	}
	sample, ok := p.prices.Get(symbol, p.name)
	if !ok {
		return domain.OrderResult{}, fmt.Errorf("paper: %s order %s: no market data for venue %s", side, symbol, p.name)
	}
	return domain.OrderResult{
		OrderID:     fmt.Sprintf("paper-%s-%d", p.name, p.counter.Add(1)),
		Venue:       p.name,
		Symbol:      symbol,
		Side:        side,
		Amount:      amount,
		FilledPrice: sample.Price,
		FilledAt:    time.Now().UTC(),
	}, nil
}

// FetchTicker mirrors the reference venue's cached price, shifted by the
// configured offset, and attributes the sample to this venue.
func (p *Paper) FetchTicker(ctx context.Context, symbol string) (domain.MarketSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSample{}, err
	}
	ref := p.refVenue
	if ref == "" {
		ref = p.name
	}
	sample, ok := p.prices.Get(symbol, ref)
	if !ok {
		return domain.MarketSample{}, fmt.Errorf("paper: fetch ticker %s: %w", symbol, domain.ErrNotFound)
	}
	sample.Venue = p.name
	sample.Price = sample.Price * (1 + p.offsetPct/100)
	sample.ObservedAt = time.Now().UTC()
	return sample, nil
}
