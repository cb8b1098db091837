// Package stats accumulates trade performance metrics from engine events.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
)

// Metrics is a point-in-time snapshot of trading performance since start.
type Metrics struct {
	TotalTrades        int           `json:"totalTrades"`
	SuccessfulTrades   int           `json:"successfulTrades"`
	FailedTrades       int           `json:"failedTrades"`
	TotalProfit        float64       `json:"totalProfit"`
	// NetProfit subtracts venue fees from TotalProfit. Adapters do not
	// report per-fill fees, so the two currently track each other.
	NetProfit          float64       `json:"netProfit"`
	WinRate            float64       `json:"winRate"`
	BestTradeProfit    float64       `json:"bestTradeProfit"`
	WorstTradeProfit   float64       `json:"worstTradeProfit"`
	AvgTradeDuration   time.Duration `json:"avgTradeDuration"`
	OpportunitiesFound int           `json:"opportunitiesFound"`
}

// Tracker folds trade lifecycle events into running metrics. All methods are
// safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	total      int
	successful int
	failed     int

	totalProfit float64
	best        float64
	worst       float64
	hasBest     bool

	totalDuration time.Duration
	durationCount int

	opportunities int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Run consumes events from the bus until the context is cancelled or the bus
// closes.
func (t *Tracker) Run(ctx context.Context, bus *events.Bus) error {
	ch, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			t.observe(ev)
		}
	}
}

func (t *Tracker) observe(ev events.Event) {
	switch ev.Type {
	case events.TypeOpportunityFound:
		t.mu.Lock()
		t.opportunities++
		t.mu.Unlock()
	case events.TypeTradeCompleted:
		if trade, ok := ev.Payload.(domain.Trade); ok {
			t.RecordCompleted(trade)
		}
	case events.TypeTradeFailed:
		if trade, ok := ev.Payload.(domain.Trade); ok {
			t.RecordFailed(trade)
		}
	}
}

// RecordCompleted folds a completed trade into the metrics.
func (t *Tracker) RecordCompleted(trade domain.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	t.successful++
	t.totalProfit += trade.Profit

	if !t.hasBest {
		t.best = trade.Profit
		t.worst = trade.Profit
		t.hasBest = true
	} else {
		if trade.Profit > t.best {
			t.best = trade.Profit
		}
		if trade.Profit < t.worst {
			t.worst = trade.Profit
		}
	}

	if trade.CompletedAt != nil {
		t.totalDuration += trade.CompletedAt.Sub(trade.CreatedAt)
		t.durationCount++
	}
}

// RecordFailed folds a failed trade into the metrics. Failed trades carry no
// realized profit.
func (t *Tracker) RecordFailed(trade domain.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	t.failed++
}

// Snapshot returns the current metrics.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{
		TotalTrades:        t.total,
		SuccessfulTrades:   t.successful,
		FailedTrades:       t.failed,
		TotalProfit:        t.totalProfit,
		NetProfit:          t.totalProfit,
		BestTradeProfit:    t.best,
		WorstTradeProfit:   t.worst,
		OpportunitiesFound: t.opportunities,
	}
	if t.total > 0 {
		m.WinRate = float64(t.successful) / float64(t.total) * 100
	}
	if t.durationCount > 0 {
		m.AvgTradeDuration = t.totalDuration / time.Duration(t.durationCount)
	}
	return m
}
