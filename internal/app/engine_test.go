package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/exchange"
	"github.com/lucidlabs/arbot/internal/stats"
)

func TestEngineStatus(t *testing.T) {
	adapters := map[string]exchange.Adapter{
		"paper":   exchange.NewPaper("paper", "", 0, nil),
		"binance": exchange.NewPaper("binance", "", 0, nil),
	}
	tracker := stats.NewTracker()
	tracker.RecordCompleted(domain.Trade{Status: domain.TradeStatusCompleted, Profit: 3})

	e := newEngine("monitor", adapters, nil, tracker)

	st := e.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "monitor", st.Mode)
	assert.Equal(t, []string{"binance", "paper"}, st.Venues, "venues are sorted")
	assert.Zero(t, st.ActiveTrades, "no executor in monitor mode")
	assert.Equal(t, 1, st.Metrics.TotalTrades)
	assert.GreaterOrEqual(t, st.Uptime, time.Duration(0))

	e.stop()
	assert.False(t, e.Status().Running)
}
