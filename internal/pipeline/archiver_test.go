package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOppStore struct {
	domain.OpportunityStore
	old     []domain.ArbitrageOpportunity
	deleted bool
	listErr error
}

func (f *fakeOppStore) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	return f.old, f.listErr
}

func (f *fakeOppStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleted = true
	return int64(len(f.old)), nil
}

type fakeTradeStore struct {
	domain.TradeStore
	old     []domain.Trade
	deleted bool
}

func (f *fakeTradeStore) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	return f.old, nil
}

func (f *fakeTradeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleted = true
	return int64(len(f.old)), nil
}

type fakeBlobWriter struct {
	puts   map[string][]byte
	putErr error
}

func (f *fakeBlobWriter) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[path] = data
	return nil
}

func TestArchiverUploadsThenDeletes(t *testing.T) {
	opps := &fakeOppStore{old: []domain.ArbitrageOpportunity{
		{ID: "o1", Symbol: "BTC/USDT"},
		{ID: "o2", Symbol: "ETH/USDT"},
	}}
	trades := &fakeTradeStore{old: []domain.Trade{
		{ID: "t1", Symbol: "BTC/USDT", Status: domain.TradeStatusCompleted},
	}}
	writer := &fakeBlobWriter{}

	a := NewArchiver(writer, opps, trades, 30, testLogger())
	require.NoError(t, a.Run(context.Background()))

	require.Len(t, writer.puts, 2)
	assert.True(t, opps.deleted)
	assert.True(t, trades.deleted)

	// One JSON object per line.
	for path, data := range writer.puts {
		assert.Contains(t, path, "archive/")
		assert.Contains(t, path, ".jsonl")
		scanner := bufio.NewScanner(bytes.NewReader(data))
		lines := 0
		for scanner.Scan() {
			lines++
			assert.True(t, json.Valid(scanner.Bytes()), "line %d of %s is not JSON", lines, path)
		}
	}
}

func TestArchiverNothingToArchive(t *testing.T) {
	opps := &fakeOppStore{}
	trades := &fakeTradeStore{}
	writer := &fakeBlobWriter{}

	a := NewArchiver(writer, opps, trades, 30, testLogger())
	require.NoError(t, a.Run(context.Background()))

	assert.Empty(t, writer.puts)
	assert.False(t, opps.deleted)
	assert.False(t, trades.deleted)
}

func TestArchiverKeepsRowsOnUploadFailure(t *testing.T) {
	opps := &fakeOppStore{old: []domain.ArbitrageOpportunity{{ID: "o1"}}}
	trades := &fakeTradeStore{}
	writer := &fakeBlobWriter{putErr: errors.New("bucket unavailable")}

	a := NewArchiver(writer, opps, trades, 30, testLogger())
	require.Error(t, a.Run(context.Background()))
	assert.False(t, opps.deleted, "rows must survive when the upload failed")
}

func TestArchiverPropagatesQueryError(t *testing.T) {
	opps := &fakeOppStore{listErr: errors.New("connection refused")}
	a := NewArchiver(&fakeBlobWriter{}, opps, &fakeTradeStore{}, 30, testLogger())
	assert.Error(t, a.Run(context.Background()))
}
