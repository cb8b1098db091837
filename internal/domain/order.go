package domain

import "time"

// OrderSide is the direction of a market order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderResult is what an exchange adapter returns for a filled market order.
type OrderResult struct {
	OrderID     string
	Venue       string
	Symbol      string
	Side        OrderSide
	Amount      float64
	FilledPrice float64
	FilledAt    time.Time
}
