package postgres

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
)

// fakeRow replays a stored column tuple through pgx.Row's Scan, and fails if
// a destination's type does not match the value the insert path bound for
// that column.
type fakeRow struct{ values []any }

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into *string", i, v)
			}
			*d = s
		case *float64:
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into *float64", i, v)
			}
			*d = f
		case *bool:
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into *bool", i, v)
			}
			*d = b
		case *time.Time:
			ts, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into *time.Time", i, v)
			}
			*d = ts
		case **time.Time:
			p, ok := v.(*time.Time)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into **time.Time", i, v)
			}
			*d = p
		default:
			return fmt.Errorf("column %d: unsupported destination %T", i, dest[i])
		}
	}
	return nil
}

// oppInsertArgs mirrors the bind order of OpportunityStore.Insert.
func oppInsertArgs(opp domain.ArbitrageOpportunity) []any {
	return []any{
		opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
		opp.Profit, opp.ProfitPercentage, opp.TradeVolume, opp.RiskScore, opp.ConfidenceScore,
		opp.DetectedAt, opp.Executed,
	}
}

// tradeInsertArgs mirrors the bind order of TradeStore.Insert.
func tradeInsertArgs(trade domain.Trade) []any {
	return []any{
		trade.ID, trade.OpportunityID, trade.Symbol, trade.BuyVenue, trade.SellVenue, trade.Amount,
		trade.BuyPrice, trade.SellPrice, trade.Profit, string(trade.Status), trade.ErrorMessage,
		trade.CreatedAt, trade.CompletedAt,
	}
}

func TestOpportunityRowRoundTrip(t *testing.T) {
	// Monetary fields carry full float64 precision on purpose: storing and
	// reloading must preserve every bit.
	opp := domain.ArbitrageOpportunity{
		ID:               "0b6f9c7e-1d24-4aaf-9c83-1f2d3e4a5b6c",
		Symbol:           "BTC/USDT",
		BuyVenue:         "binance",
		SellVenue:        "kraken",
		BuyPrice:         50000.123456789,
		SellPrice:        50505.987654321,
		Profit:           505.86419753200004,
		ProfitPercentage: 1.0117234567890123,
		TradeVolume:      0.019999999999999997,
		RiskScore:        0.30000000000000004,
		ConfidenceScore:  0.65,
		DetectedAt:       time.Date(2026, 8, 30, 12, 0, 0, 123456000, time.UTC),
		Executed:         true,
	}

	args := oppInsertArgs(opp)
	assert.Len(t, strings.Split(oppSelectCols, ","), len(args),
		"select column list and insert bind list must cover the same columns")

	got, err := scanOpportunity(fakeRow{values: args})
	require.NoError(t, err)
	assert.Equal(t, opp, got)
}

func TestTradeRowRoundTrip(t *testing.T) {
	completed := time.Date(2026, 8, 30, 12, 0, 3, 500000000, time.UTC)
	trade := domain.Trade{
		ID:            "9d8c7b6a-5f4e-4d3c-8b2a-1c0d9e8f7a6b",
		OpportunityID: "0b6f9c7e-1d24-4aaf-9c83-1f2d3e4a5b6c",
		Symbol:        "ETH/USDT",
		BuyVenue:      "coinbase",
		SellVenue:     "binance",
		Amount:        0.30000000000000004,
		BuyPrice:      3000.0000000001,
		SellPrice:     3033.9999999999,
		Profit:        10.199999999940017,
		Status:        domain.TradeStatusCompleted,
		ErrorMessage:  "",
		CreatedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		CompletedAt:   &completed,
	}

	args := tradeInsertArgs(trade)
	assert.Len(t, strings.Split(tradeSelectCols, ","), len(args),
		"select column list and insert bind list must cover the same columns")

	got, err := scanTrade(fakeRow{values: args})
	require.NoError(t, err)
	assert.Equal(t, trade, got)
}

func TestTradeRowRoundTripNoCompletion(t *testing.T) {
	trade := domain.Trade{
		ID:            "1a2b3c4d-5e6f-4a8b-9c0d-e1f2a3b4c5d6",
		OpportunityID: "opp-2",
		Symbol:        "SOL/USDT",
		BuyVenue:      "kraken",
		SellVenue:     "coinbase",
		Amount:        12.5,
		BuyPrice:      140.01,
		SellPrice:     141.8,
		Profit:        0,
		Status:        domain.TradeStatusFailed,
		ErrorMessage:  "insufficient liquidity",
		CreatedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		CompletedAt:   nil,
	}

	got, err := scanTrade(fakeRow{values: tradeInsertArgs(trade)})
	require.NoError(t, err)
	assert.Equal(t, trade, got)
	assert.Nil(t, got.CompletedAt)
}
