// Package executor turns approved opportunities into paired buy/sell trades
// and drives each trade through its lifecycle. Every accepted opportunity
// runs as its own goroutine, bounded by a concurrency cap; the active-trade
// set is owned exclusively by this package.
package executor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
	"github.com/lucidlabs/arbot/internal/exchange"
	"github.com/lucidlabs/arbot/internal/risk"
)

// Config holds execution parameters.
type Config struct {
	// MaxRiskScore is the inclusive execution gate applied when an
	// opportunity is dequeued.
	MaxRiskScore float64
	// MaxConcurrentTrades caps simultaneously executing trades. Opportunities
	// arriving beyond the cap are rejected, not queued.
	MaxConcurrentTrades int
}

// Executor consumes opportunities from a channel, applies the risk gate, and
// executes the buy leg then the sell leg through the venue adapters.
type Executor struct {
	cfg        Config
	oppCh      <-chan domain.ArbitrageOpportunity
	adapters   map[string]exchange.Adapter
	bus        *events.Bus
	tradeStore domain.TradeStore       // optional
	oppStore   domain.OpportunityStore // optional
	logger     *slog.Logger

	slots chan struct{}

	mu     sync.Mutex
	active map[string]*domain.Trade

	wg sync.WaitGroup
}

// New creates an Executor reading opportunities from oppCh. tradeStore and
// oppStore may be nil; lifecycle persistence is then skipped.
func New(cfg Config, oppCh <-chan domain.ArbitrageOpportunity, adapters map[string]exchange.Adapter, bus *events.Bus, tradeStore domain.TradeStore, oppStore domain.OpportunityStore, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:        cfg,
		oppCh:      oppCh,
		adapters:   adapters,
		bus:        bus,
		tradeStore: tradeStore,
		oppStore:   oppStore,
		logger:     logger.With(slog.String("component", "executor")),
		slots:      make(chan struct{}, cfg.MaxConcurrentTrades),
		active:     make(map[string]*domain.Trade),
	}
}

// Run processes opportunities until ctx is cancelled. On shutdown every trade
// still in the active set is marked cancelled in memory without further I/O;
// in-flight order submissions are not awaited.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("trade execution started",
		slog.Float64("max_risk_score", e.cfg.MaxRiskScore),
		slog.Int("max_concurrent_trades", e.cfg.MaxConcurrentTrades),
	)
	defer e.logger.Info("trade execution stopped")

	for {
		select {
		case <-ctx.Done():
			e.cancelActive()
			return ctx.Err()
		case opp, ok := <-e.oppCh:
			if !ok {
				e.cancelActive()
				return nil
			}
			e.handle(ctx, opp)
		}
	}
}

// handle applies the risk gate and the concurrency cap, then spawns the
// execution goroutine. The gate is evaluated exactly once, here; it is not
// re-evaluated during execution.
func (e *Executor) handle(ctx context.Context, opp domain.ArbitrageOpportunity) {
	log := e.logger.With(
		slog.String("opp_id", opp.ID),
		slog.String("symbol", opp.Symbol),
	)

	opp.RiskScore = risk.Score(opp, time.Now().UTC())
	if !risk.Gate(opp.RiskScore, e.cfg.MaxRiskScore) {
		log.Debug("opportunity rejected by risk gate",
			slog.Float64("risk_score", opp.RiskScore),
		)
		return
	}

	select {
	case e.slots <- struct{}{}:
	default:
		log.Warn("opportunity rejected", slog.String("reason", domain.ErrExecutorBusy.Error()))
		return
	}

	trade := e.accept(ctx, opp, log)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.slots }()
		e.execute(ctx, trade, log)
	}()
}

// accept creates the trade in the executing state and registers it in the
// active set.
func (e *Executor) accept(ctx context.Context, opp domain.ArbitrageOpportunity, log *slog.Logger) *domain.Trade {
	trade := &domain.Trade{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Symbol:        opp.Symbol,
		BuyVenue:      opp.BuyVenue,
		SellVenue:     opp.SellVenue,
		Amount:        opp.TradeVolume,
		BuyPrice:      opp.BuyPrice,
		SellPrice:     opp.SellPrice,
		Profit:        opp.Profit,
		Status:        domain.TradeStatusExecuting,
		CreatedAt:     time.Now().UTC(),
	}

	e.mu.Lock()
	e.active[trade.ID] = trade
	e.mu.Unlock()

	if e.tradeStore != nil {
		if err := e.tradeStore.Insert(ctx, *trade); err != nil {
			log.Warn("trade insert failed", slog.String("error", err.Error()))
		}
	}
	if e.oppStore != nil {
		if err := e.oppStore.MarkExecuted(ctx, opp.ID); err != nil {
			log.Warn("mark opportunity executed failed", slog.String("error", err.Error()))
		}
	}

	log.Info("executing arbitrage trade",
		slog.String("trade_id", trade.ID),
		slog.String("buy_venue", trade.BuyVenue),
		slog.String("sell_venue", trade.SellVenue),
		slog.Float64("amount", trade.Amount),
	)
	return trade
}

// execute runs the buy leg then the sell leg. A failed buy stops the trade
// before any sell attempt. A failed sell after a successful buy leaves an
// un-hedged long position: the trade is marked failed and no unwind order is
// submitted.
func (e *Executor) execute(ctx context.Context, trade *domain.Trade, log *slog.Logger) {
	if ctx.Err() != nil {
		e.cancel(trade)
		return
	}

	buyAdapter, ok := e.adapters[trade.BuyVenue]
	if !ok {
		e.fail(ctx, trade, "venue "+trade.BuyVenue+" not available", log)
		return
	}
	if _, err := buyAdapter.CreateMarketBuyOrder(ctx, trade.Symbol, trade.Amount); err != nil {
		if ctx.Err() != nil {
			e.cancel(trade)
			return
		}
		e.fail(ctx, trade, err.Error(), log)
		return
	}

	if ctx.Err() != nil {
		e.cancel(trade)
		return
	}

	sellAdapter, ok := e.adapters[trade.SellVenue]
	if !ok {
		e.fail(ctx, trade, "venue "+trade.SellVenue+" not available", log)
		return
	}
	if _, err := sellAdapter.CreateMarketSellOrder(ctx, trade.Symbol, trade.Amount); err != nil {
		if ctx.Err() != nil {
			e.cancel(trade)
			return
		}
		e.fail(ctx, trade, err.Error(), log)
		return
	}

	e.complete(ctx, trade, log)
}

func (e *Executor) complete(ctx context.Context, trade *domain.Trade, log *slog.Logger) {
	now := time.Now().UTC()

	e.mu.Lock()
	if trade.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	trade.Status = domain.TradeStatusCompleted
	trade.CompletedAt = &now
	snapshot := *trade
	delete(e.active, trade.ID)
	e.mu.Unlock()

	if e.tradeStore != nil {
		if err := e.tradeStore.Update(ctx, snapshot); err != nil {
			log.Warn("trade update failed", slog.String("error", err.Error()))
		}
	}

	log.Info("arbitrage trade completed",
		slog.String("trade_id", snapshot.ID),
		slog.Float64("profit", snapshot.Profit),
	)
	e.bus.Publish(events.Event{Type: events.TypeTradeCompleted, Payload: snapshot})
}

func (e *Executor) fail(ctx context.Context, trade *domain.Trade, errMsg string, log *slog.Logger) {
	e.mu.Lock()
	if trade.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	trade.Status = domain.TradeStatusFailed
	trade.ErrorMessage = errMsg
	snapshot := *trade
	delete(e.active, trade.ID)
	e.mu.Unlock()

	if e.tradeStore != nil {
		if err := e.tradeStore.Update(ctx, snapshot); err != nil {
			log.Warn("trade update failed", slog.String("error", err.Error()))
		}
	}

	log.Error("arbitrage trade failed",
		slog.String("trade_id", snapshot.ID),
		slog.String("error", errMsg),
	)
	e.bus.Publish(events.Event{Type: events.TypeTradeFailed, Payload: snapshot})
}

// cancel marks a single trade cancelled in memory. No persistence, no events:
// shutdown is best-effort.
func (e *Executor) cancel(trade *domain.Trade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if trade.Status.Terminal() {
		return
	}
	trade.Status = domain.TradeStatusCancelled
	delete(e.active, trade.ID)
}

// cancelActive marks every remaining active trade cancelled.
func (e *Executor) cancelActive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, trade := range e.active {
		trade.Status = domain.TradeStatusCancelled
		delete(e.active, id)
	}
}

// ActiveTrades returns a snapshot of trades currently executing, sorted by
// creation time.
func (e *Executor) ActiveTrades() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Trade, 0, len(e.active))
	for _, t := range e.active {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Wait blocks until all spawned execution goroutines have returned. Intended
// for tests; Run does not await in-flight trades on shutdown.
func (e *Executor) Wait() {
	e.wg.Wait()
}
