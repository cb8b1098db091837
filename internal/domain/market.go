// Package domain defines the core data model shared by the arbitrage engine:
// market samples, opportunities, trades, order results, and the store
// interfaces implemented by the persistence layer.
package domain

import "time"

// MarketSample is the latest observed price/volume for a symbol on one venue.
// Samples are ephemeral: the market-data cache keeps only the most recent one
// per (symbol, venue) key and overwrites it on every tick.
type MarketSample struct {
	Symbol     string
	Venue      string
	Price      float64
	Volume     float64
	ObservedAt time.Time
}

// VenuePrice is a (venue, price) pair as returned by cache reads for one symbol.
type VenuePrice struct {
	Venue string
	Price float64
}
