// Package risk scores opportunities on a bounded [0,1] scale used as the
// execution gate.
package risk

import (
	"time"

	"github.com/lucidlabs/arbot/internal/domain"
)

const (
	thinMarginPenalty   = 0.2 // profit below 0.5%
	narrowMarginPenalty = 0.1 // profit below 1%
	sameVenuePenalty    = 0.5 // degenerate same-venue "arbitrage"
	stalePenalty        = 0.3 // detected more than maxAge ago

	maxAge = 10 * time.Second
)

// Score accumulates independent additive penalties for the given opportunity
// and clamps the total to [0,1]. It is pure: the same opportunity and clock
// reading always yield the same score.
func Score(opp domain.ArbitrageOpportunity, now time.Time) float64 {
	score := 0.0

	switch {
	case opp.ProfitPercentage < 0.5:
		score += thinMarginPenalty
	case opp.ProfitPercentage < 1:
		score += narrowMarginPenalty
	}

	if opp.BuyVenue == opp.SellVenue {
		score += sameVenuePenalty
	}

	if opp.Age(now) > maxAge {
		score += stalePenalty
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Gate reports whether an opportunity with the given score may execute under
// the configured threshold. The bound is inclusive: a score exactly at the
// threshold passes.
func Gate(score, maxRiskScore float64) bool {
	return score <= maxRiskScore
}
