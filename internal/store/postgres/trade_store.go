package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucidlabs/arbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, opportunity_id, symbol, exchange_buy, exchange_sell, amount,
	buy_price, sell_price, profit, status, error_message, created_at, completed_at`

// Insert stores a new trade record.
func (s *TradeStore) Insert(ctx context.Context, trade domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, opportunity_id, symbol, exchange_buy, exchange_sell, amount,
			buy_price, sell_price, profit, status, error_message,
			created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.OpportunityID, trade.Symbol, trade.BuyVenue, trade.SellVenue, trade.Amount,
		trade.BuyPrice, trade.SellPrice, trade.Profit, string(trade.Status), trade.ErrorMessage,
		trade.CreatedAt, trade.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", trade.ID, err)
	}
	return nil
}

// Get returns one trade by ID.
func (s *TradeStore) Get(ctx context.Context, id string) (domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE id = $1`
	trade, err := scanTrade(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trade{}, domain.ErrNotFound
		}
		return domain.Trade{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return trade, nil
}

// Update rewrites the mutable fields of an existing trade.
func (s *TradeStore) Update(ctx context.Context, trade domain.Trade) error {
	const query = `
		UPDATE trades SET
			buy_price = $2,
			sell_price = $3,
			profit = $4,
			status = $5,
			error_message = $6,
			completed_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		trade.ID, trade.BuyPrice, trade.SellPrice, trade.Profit,
		string(trade.Status), trade.ErrorMessage, trade.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update trade %s: %w", trade.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns the most recent trades ordered by creation time.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListOlderThan returns trades created before cutoff, oldest first.
func (s *TradeStore) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// DeleteOlderThan removes trades created before cutoff and returns the number
// of rows deleted.
func (s *TradeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %v: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func (s *TradeStore) list(ctx context.Context, query string, args ...any) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		trade  domain.Trade
		status string
	)
	err := row.Scan(
		&trade.ID, &trade.OpportunityID, &trade.Symbol, &trade.BuyVenue, &trade.SellVenue, &trade.Amount,
		&trade.BuyPrice, &trade.SellPrice, &trade.Profit, &status, &trade.ErrorMessage,
		&trade.CreatedAt, &trade.CompletedAt,
	)
	trade.Status = domain.TradeStatus(status)
	return trade, err
}
