package domain

import "time"

// ArbitrageOpportunity is a detected cross-venue price spread whose profit
// percentage cleared the configured minimum threshold. It is created by the
// detector and read-only afterwards, except for the Executed flag which the
// executor sets when it accepts the opportunity.
type ArbitrageOpportunity struct {
	ID               string
	Symbol           string
	BuyVenue         string
	SellVenue        string
	BuyPrice         float64
	SellPrice        float64
	Profit           float64 // SellPrice - BuyPrice
	ProfitPercentage float64 // Profit / BuyPrice * 100
	TradeVolume      float64 // bounded by max notional and the liquidity cap
	DetectedAt       time.Time
	Executed         bool
	RiskScore        float64 // [0,1], filled in by the risk scorer at gating time
	ConfidenceScore  float64 // [0,1], min(spreadPercent/10, 1)
}

// Age returns how long ago the opportunity was detected.
func (o ArbitrageOpportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.DetectedAt)
}
