package domain

import (
	"context"
	"time"
)

// OpportunityStore persists detected opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	Get(ctx context.Context, id string) (ArbitrageOpportunity, error)
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]ArbitrageOpportunity, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TradeStore persists trade lifecycle records.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	Get(ctx context.Context, id string) (Trade, error)
	Update(ctx context.Context, trade Trade) error
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Trade, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlobWriter uploads a single object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
