package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucidlabs/arbot/internal/domain"
)

func opp(profitPct float64, buy, sell string, age time.Duration, now time.Time) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ProfitPercentage: profitPct,
		BuyVenue:         buy,
		SellVenue:        sell,
		DetectedAt:       now.Add(-age),
	}
}

func TestScore(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		opp  domain.ArbitrageOpportunity
		want float64
	}{
		{"wide fresh spread", opp(2.0, "binance", "kraken", 0, now), 0.0},
		{"thin margin", opp(0.3, "binance", "kraken", 0, now), 0.2},
		{"narrow margin", opp(0.8, "binance", "kraken", 0, now), 0.1},
		{"margin exactly half percent", opp(0.5, "binance", "kraken", 0, now), 0.1},
		{"margin exactly one percent", opp(1.0, "binance", "kraken", 0, now), 0.0},
		{"same venue", opp(2.0, "binance", "binance", 0, now), 0.5},
		{"stale", opp(2.0, "binance", "kraken", 11*time.Second, now), 0.3},
		{"age exactly at limit", opp(2.0, "binance", "kraken", 10*time.Second, now), 0.0},
		{"thin and stale and same venue", opp(0.3, "binance", "binance", 11*time.Second, now), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.opp, now), 1e-9)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	now := time.Now().UTC()
	o := opp(0.8, "binance", "kraken", 3*time.Second, now)
	first := Score(o, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(o, now))
	}
}

func TestGateInclusiveBound(t *testing.T) {
	assert.True(t, Gate(0.7, 0.7), "score exactly at the threshold must pass")
	assert.True(t, Gate(0.69, 0.7))
	assert.False(t, Gate(0.71, 0.7))
	assert.True(t, Gate(0, 0))
}
