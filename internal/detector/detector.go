// Package detector scans the market-data cache for cross-venue spreads and
// emits scored opportunities whose profit clears the configured threshold.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
	"github.com/lucidlabs/arbot/internal/marketdata"
)

// Config holds detection parameters.
type Config struct {
	Symbols []string
	// MinProfitThreshold is the minimum profit percentage to emit.
	MinProfitThreshold float64
	// MaxTradeAmount bounds trade notional in quote currency.
	MaxTradeAmount float64
	// VolumeHardCap bounds trade volume in base units. It is a liquidity
	// proxy, not an order-book query.
	VolumeHardCap float64
	// Interval is the periodic scan period.
	Interval time.Duration
	// Cooldown suppresses re-emission of the same (symbol, buy, sell) spread
	// inside the window. Zero disables suppression and consecutive scans may
	// emit duplicate opportunities for a still-favorable spread.
	Cooldown time.Duration
}

type spreadKey struct {
	symbol string
	buy    string
	sell   string
}

// Detector runs a periodic scan over the cache and additionally rescans a
// symbol whenever the feed layer signals a fresh tick for it.
type Detector struct {
	cfg    Config
	cache  *marketdata.Cache
	out    chan<- domain.ArbitrageOpportunity
	bus    *events.Bus
	logger *slog.Logger

	trigger chan string

	mu       sync.Mutex
	lastEmit map[spreadKey]time.Time
}

// New creates a detector that hands emitted opportunities to out and mirrors
// them onto the event bus.
func New(cfg Config, cache *marketdata.Cache, out chan<- domain.ArbitrageOpportunity, bus *events.Bus, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:      cfg,
		cache:    cache,
		out:      out,
		bus:      bus,
		logger:   logger.With(slog.String("component", "detector")),
		trigger:  make(chan string, 256),
		lastEmit: make(map[spreadKey]time.Time),
	}
}

// Trigger requests an immediate rescan of the symbol. It never blocks; when
// the trigger queue is full the next periodic scan covers the tick instead.
func (d *Detector) Trigger(symbol string) {
	select {
	case d.trigger <- symbol:
	default:
	}
}

// Run scans every tracked symbol each interval and on every trigger, until
// ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	d.logger.Info("opportunity detection started",
		slog.Duration("interval", d.cfg.Interval),
		slog.Float64("min_profit_threshold", d.cfg.MinProfitThreshold),
	)
	defer d.logger.Info("opportunity detection stopped")

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, symbol := range d.cfg.Symbols {
				d.scanSymbol(symbol)
			}
		case symbol := <-d.trigger:
			d.scanSymbol(symbol)
		}
	}
}

// scanSymbol selects the minimum-price venue as buy side and maximum-price
// venue as sell side. The cache returns venues sorted by name and the scan
// replaces the current best only on a strict improvement, so the
// lexicographically-first venue wins price ties.
func (d *Detector) scanSymbol(symbol string) {
	prices := d.cache.VenuePrices(symbol)
	if len(prices) < 2 {
		// Opportunities need at least two distinct venue prices.
		return
	}

	buy := prices[0]
	sell := prices[0]
	for _, vp := range prices[1:] {
		if vp.Price < buy.Price {
			buy = vp
		}
		if vp.Price > sell.Price {
			sell = vp
		}
	}
	if buy.Price <= 0 {
		return
	}

	profit := sell.Price - buy.Price
	profitPercentage := profit / buy.Price * 100
	if profitPercentage < d.cfg.MinProfitThreshold {
		// Below threshold: discarded, not stored, not emitted.
		return
	}

	if !d.clearCooldown(spreadKey{symbol, buy.Venue, sell.Venue}) {
		return
	}

	spreadPercent := (sell.Price - buy.Price) / buy.Price * 100
	confidence := spreadPercent / 10
	if confidence > 1 {
		confidence = 1
	}

	volume := d.cfg.MaxTradeAmount / buy.Price
	if volume > d.cfg.VolumeHardCap {
		volume = d.cfg.VolumeHardCap
	}

	opp := domain.ArbitrageOpportunity{
		ID:               uuid.New().String(),
		Symbol:           symbol,
		BuyVenue:         buy.Venue,
		SellVenue:        sell.Venue,
		BuyPrice:         buy.Price,
		SellPrice:        sell.Price,
		Profit:           profit,
		ProfitPercentage: profitPercentage,
		TradeVolume:      volume,
		DetectedAt:       time.Now().UTC(),
		ConfidenceScore:  confidence,
	}

	d.logger.Info("arbitrage opportunity found",
		slog.String("opp_id", opp.ID),
		slog.String("symbol", symbol),
		slog.String("buy_venue", buy.Venue),
		slog.String("sell_venue", sell.Venue),
		slog.Float64("profit_pct", profitPercentage),
	)

	d.bus.Publish(events.Event{Type: events.TypeOpportunityFound, Payload: opp})

	select {
	case d.out <- opp:
	default:
		d.logger.Warn("executor queue full, dropping opportunity",
			slog.String("opp_id", opp.ID),
		)
	}
}

// clearCooldown reports whether the spread may be emitted and records the
// emission time. Always true when the cooldown is disabled.
func (d *Detector) clearCooldown(key spreadKey) bool {
	if d.cfg.Cooldown <= 0 {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastEmit[key]; ok && now.Sub(last) < d.cfg.Cooldown {
		return false
	}
	d.lastEmit[key] = now
	return true
}
