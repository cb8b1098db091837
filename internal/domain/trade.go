package domain

import "time"

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusExecuting TradeStatus = "executing"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusFailed    TradeStatus = "failed"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeStatusCompleted, TradeStatusFailed, TradeStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition. Trades only move forward: pending -> executing -> terminal,
// and never leave a terminal state.
func (s TradeStatus) CanTransition(next TradeStatus) bool {
	switch s {
	case TradeStatusPending:
		return next == TradeStatusExecuting || next.Terminal()
	case TradeStatusExecuting:
		return next.Terminal()
	}
	return false
}

// Trade is a paired buy/sell execution derived from an opportunity. It is
// owned exclusively by the executor until it reaches a terminal status.
type Trade struct {
	ID            string
	OpportunityID string // empty when the trade was not derived from a recorded opportunity
	Symbol        string
	BuyVenue      string
	SellVenue     string
	Amount        float64
	BuyPrice      float64
	SellPrice     float64
	Profit        float64
	Status        TradeStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
	ErrorMessage  string
}
