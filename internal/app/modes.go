package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucidlabs/arbot/internal/detector"
	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
	"github.com/lucidlabs/arbot/internal/executor"
	"github.com/lucidlabs/arbot/internal/feed"
	"github.com/lucidlabs/arbot/internal/notify"
	"github.com/lucidlabs/arbot/internal/pipeline"
)

// opportunityQueueSize buffers detected opportunities between detection and
// execution. Overflow drops the opportunity; the next scan re-detects a
// spread that is still live.
const opportunityQueueSize = 64

const statusLogInterval = time.Minute

// TradeMode runs the full engine: price feeds, detection, risk-gated
// execution, persistence, and notifications.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	oppCh := make(chan domain.ArbitrageOpportunity, opportunityQueueSize)

	det := detector.New(detector.Config{
		Symbols:            a.cfg.Symbols,
		MinProfitThreshold: a.cfg.Trading.MinProfitThreshold,
		MaxTradeAmount:     a.cfg.Trading.MaxTradeAmount,
		VolumeHardCap:      a.cfg.Trading.VolumeHardCap,
		Interval:           a.cfg.Monitoring.UpdateInterval.Duration,
		Cooldown:           a.cfg.Monitoring.Cooldown.Duration,
	}, deps.Cache, oppCh, deps.Bus, a.logger)

	exec := executor.New(executor.Config{
		MaxRiskScore:        a.cfg.Trading.MaxRiskScore,
		MaxConcurrentTrades: a.cfg.Trading.MaxConcurrentTrades,
	}, oppCh, deps.Adapters, deps.Bus, deps.TradeStore, deps.OpportunityStore, a.logger)

	engine := newEngine("trade", deps.Adapters, exec, deps.Tracker)

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps, det, engine)
	g.Go(func() error {
		return exec.Run(ctx)
	})

	deps.Bus.Publish(events.Event{Type: events.TypeStarted})
	err := g.Wait()
	engine.stop()
	deps.Bus.Publish(events.Event{Type: events.TypeStopped})
	return err
}

// MonitorMode runs feeds, detection, recording, and notifications without
// executing any trades. Opportunities drained from the queue are discarded.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	oppCh := make(chan domain.ArbitrageOpportunity, opportunityQueueSize)

	det := detector.New(detector.Config{
		Symbols:            a.cfg.Symbols,
		MinProfitThreshold: a.cfg.Trading.MinProfitThreshold,
		MaxTradeAmount:     a.cfg.Trading.MaxTradeAmount,
		VolumeHardCap:      a.cfg.Trading.VolumeHardCap,
		Interval:           a.cfg.Monitoring.UpdateInterval.Duration,
		Cooldown:           a.cfg.Monitoring.Cooldown.Duration,
	}, deps.Cache, oppCh, deps.Bus, a.logger)

	engine := newEngine("monitor", deps.Adapters, nil, deps.Tracker)

	g, ctx := errgroup.WithContext(ctx)
	a.startCommon(ctx, g, deps, det, engine)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-oppCh:
			}
		}
	})

	deps.Bus.Publish(events.Event{Type: events.TypeStarted})
	err := g.Wait()
	engine.stop()
	deps.Bus.Publish(events.Event{Type: events.TypeStopped})
	return err
}

// startCommon launches the goroutines shared by both modes: price feeds,
// detection, bus consumers, the optional Redis mirror and archiver, and the
// periodic status log.
func (a *App) startCommon(ctx context.Context, g *errgroup.Group, deps *Dependencies, det *detector.Detector, engine *Engine) {
	feeds := feed.NewManager(feed.ManagerConfig{
		BinanceWSHost:  a.cfg.Feeds.BinanceWSHost,
		ReconnectDelay: a.cfg.Feeds.ReconnectDelay.Duration,
		PollInterval:   a.cfg.Monitoring.UpdateInterval.Duration,
	}, deps.Cache, deps.Adapters, func(sample domain.MarketSample) {
		det.Trigger(sample.Symbol)
	}, a.logger)

	g.Go(func() error {
		return feeds.Run(ctx, a.cfg.Symbols)
	})
	g.Go(func() error {
		return det.Run(ctx)
	})
	g.Go(func() error {
		return deps.Tracker.Run(ctx, deps.Bus)
	})

	listener := notify.NewListener(deps.Bus, deps.Notifier, a.cfg.Monitoring.AlertThreshold, a.logger)
	g.Go(func() error {
		return listener.Run(ctx)
	})

	if deps.OpportunityStore != nil {
		recorder := pipeline.NewRecorder(deps.Bus, deps.OpportunityStore, a.logger)
		g.Go(func() error {
			return recorder.Run(ctx)
		})
	}

	if deps.Redis != nil {
		mirror := events.NewMirror(deps.Redis, deps.Bus, a.cfg.Redis.EventsChannel, a.logger)
		g.Go(func() error {
			return mirror.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.RunPeriodic(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	g.Go(func() error {
		return a.logStatus(ctx, engine)
	})
}

// logStatus periodically logs the engine snapshot so operators can follow a
// long-running process from the logs alone.
func (a *App) logStatus(ctx context.Context, engine *Engine) error {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := engine.Status()
			a.logger.Info("engine status",
				slog.String("mode", st.Mode),
				slog.Int("venues", len(st.Venues)),
				slog.Int("active_trades", st.ActiveTrades),
				slog.Duration("uptime", st.Uptime.Round(time.Second)),
				slog.Int("opportunities_found", st.Metrics.OpportunitiesFound),
				slog.Int("total_trades", st.Metrics.TotalTrades),
				slog.Float64("total_profit", st.Metrics.TotalProfit),
				slog.Float64("win_rate", st.Metrics.WinRate),
			)
		}
	}
}
