// Package feed maintains one live price source per tracked (symbol, venue)
// pair and writes every tick into the market-data cache. Venues with a
// streaming endpoint are consumed over websocket; the rest are polled through
// their exchange adapter. Connection failures reconnect after a fixed delay
// for as long as the engine runs.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/exchange"
	"github.com/lucidlabs/arbot/internal/marketdata"
)

// SampleHandler receives each inbound tick after it has been parsed.
type SampleHandler func(sample domain.MarketSample)

// ManagerConfig configures the feed manager.
type ManagerConfig struct {
	// BinanceWSHost is the streaming endpoint base, e.g.
	// "wss://stream.binance.com:9443/ws". Empty disables streaming; binance
	// falls back to polling like any other venue.
	BinanceWSHost string
	// ReconnectDelay is the fixed pause before re-dialing a dropped stream.
	ReconnectDelay time.Duration
	// PollInterval is the ticker polling period for venues without a stream.
	PollInterval time.Duration
}

// Manager owns every feed goroutine. Each inbound tick overwrites the cache
// entry for its (symbol, venue) key and is then passed to the onTick hook so
// the detector can react without polling.
type Manager struct {
	cfg      ManagerConfig
	cache    *marketdata.Cache
	adapters map[string]exchange.Adapter
	onTick   SampleHandler
	logger   *slog.Logger
}

// NewManager creates a feed manager over the given venue adapters.
func NewManager(cfg ManagerConfig, cache *marketdata.Cache, adapters map[string]exchange.Adapter, onTick SampleHandler, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		cache:    cache,
		adapters: adapters,
		onTick:   onTick,
		logger:   logger.With(slog.String("component", "feed_manager")),
	}
}

// Run opens one price source per (symbol, venue) pair and blocks until ctx is
// cancelled. Individual source failures never propagate; a venue that stays
// unreachable simply never updates its cache entries.
func (m *Manager) Run(ctx context.Context, symbols []string) error {
	var wg sync.WaitGroup
	sources := 0
	for _, symbol := range symbols {
		for venue := range m.adapters {
			wg.Add(1)
			sources++
			go func(symbol, venue string) {
				defer wg.Done()
				m.runSource(ctx, symbol, venue)
			}(symbol, venue)
		}
	}
	m.logger.Info("price feeds started",
		slog.Int("symbols", len(symbols)),
		slog.Int("sources", sources),
	)

	<-ctx.Done()
	wg.Wait()
	m.logger.Info("price feeds stopped")
	return ctx.Err()
}

// runSource drives one (symbol, venue) source until ctx is done, reconnecting
// after the fixed delay on every failure.
func (m *Manager) runSource(ctx context.Context, symbol, venue string) {
	log := m.logger.With(slog.String("symbol", symbol), slog.String("venue", venue))

	if venue == "binance" && m.cfg.BinanceWSHost != "" {
		stream := &tickerStream{
			wsHost: m.cfg.BinanceWSHost,
			symbol: symbol,
			venue:  venue,
			onTick: m.handleTick,
		}
		for {
			err := stream.runOnce(ctx)
			if ctx.Err() != nil {
				return
			}
			log.Warn("price stream disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", m.cfg.ReconnectDelay),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.cfg.ReconnectDelay):
			}
		}
	}

	m.poll(ctx, symbol, venue, log)
}

// poll fetches the venue ticker through its adapter at the poll interval.
func (m *Manager) poll(ctx context.Context, symbol, venue string, log *slog.Logger) {
	adapter := m.adapters[venue]
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := adapter.FetchTicker(ctx, symbol)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Debug("ticker poll failed", slog.String("error", err.Error()))
				continue
			}
			m.handleTick(sample)
		}
	}
}

// handleTick overwrites the cache entry and forwards the sample to the hook.
func (m *Manager) handleTick(sample domain.MarketSample) {
	m.cache.Put(sample)
	if m.onTick != nil {
		m.onTick(sample)
	}
}
