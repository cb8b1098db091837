package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucidlabs/arbot/internal/domain"
)

func completed(profit float64, dur time.Duration) domain.Trade {
	created := time.Now().UTC().Add(-dur)
	done := created.Add(dur)
	return domain.Trade{
		Status:      domain.TradeStatusCompleted,
		Profit:      profit,
		CreatedAt:   created,
		CompletedAt: &done,
	}
}

func TestTrackerEmptySnapshot(t *testing.T) {
	m := NewTracker().Snapshot()
	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.AvgTradeDuration)
}

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker()
	tr.RecordCompleted(completed(10, 2*time.Second))
	tr.RecordCompleted(completed(-4, 4*time.Second))
	tr.RecordFailed(domain.Trade{Status: domain.TradeStatusFailed})

	m := tr.Snapshot()
	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.SuccessfulTrades)
	assert.Equal(t, 1, m.FailedTrades)
	assert.InDelta(t, 6.0, m.TotalProfit, 1e-9)
	assert.InDelta(t, 6.0, m.NetProfit, 1e-9)
	assert.InDelta(t, 100.0*2/3, m.WinRate, 1e-9)
	assert.Equal(t, 10.0, m.BestTradeProfit)
	assert.Equal(t, -4.0, m.WorstTradeProfit)
	assert.Equal(t, 3*time.Second, m.AvgTradeDuration)
}

func TestTrackerBestWorstSingleTrade(t *testing.T) {
	tr := NewTracker()
	tr.RecordCompleted(completed(-2, time.Second))

	m := tr.Snapshot()
	assert.Equal(t, -2.0, m.BestTradeProfit)
	assert.Equal(t, -2.0, m.WorstTradeProfit)
}
