package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucidlabs/arbot/internal/domain"
)

// Archiver moves aged opportunity and trade records from the database into
// S3 cold storage, then deletes them from the primary store. Deletion only
// happens after the corresponding upload succeeded, so a failed run leaves
// the rows in place for the next attempt.
type Archiver struct {
	writer        domain.BlobWriter
	opportunities domain.OpportunityStore
	trades        domain.TradeStore
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver with the given retention window in days.
func NewArchiver(
	writer domain.BlobWriter,
	opportunities domain.OpportunityStore,
	trades domain.TradeStore,
	retentionDays int,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:        writer,
		opportunities: opportunities,
		trades:        trades,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive pass over both stores.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	oppCount, err := a.archiveOpportunities(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive opportunities before %v: %w", cutoff, err)
	}

	tradeCount, err := a.archiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive trades before %v: %w", cutoff, err)
	}

	a.logger.Info("archive run complete",
		slog.Int64("opportunities_archived", oppCount),
		slog.Int64("trades_archived", tradeCount),
	)
	return nil
}

// RunPeriodic runs an archive pass immediately and then on every interval
// tick until the context is cancelled.
func (a *Archiver) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.Run(ctx); err != nil {
			a.logger.Error("archive run failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Archiver) archiveOpportunities(ctx context.Context, cutoff time.Time) (int64, error) {
	opps, err := a.opportunities.ListOlderThan(ctx, cutoff, 0)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}
	path := archivePath("opportunities", cutoff)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("upload: %w", err)
	}

	deleted, err := a.opportunities.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete after upload to %s: %w", path, err)
	}
	a.logger.Info("archived opportunities",
		slog.String("path", path),
		slog.Int("uploaded", len(opps)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(opps)), nil
}

func (a *Archiver) archiveTrades(ctx context.Context, cutoff time.Time) (int64, error) {
	trades, err := a.trades.ListOlderThan(ctx, cutoff, 0)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}
	path := archivePath("trades", cutoff)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("upload: %w", err)
	}

	deleted, err := a.trades.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete after upload to %s: %w", path, err)
	}
	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int("uploaded", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(trades)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date, e.g. archive/trades/2026-08-02.jsonl.
func archivePath(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, cutoff.Format("2006-01-02"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
