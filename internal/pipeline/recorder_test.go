package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
)

type memOppStore struct {
	domain.OpportunityStore
	mu       sync.Mutex
	inserted []domain.ArbitrageOpportunity
}

func (m *memOppStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, opp)
	return nil
}

func (m *memOppStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

func TestRecorderPersistsOpportunities(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	store := &memOppStore{}
	r := NewRecorder(bus, store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	bus.Publish(events.Event{
		Type:    events.TypeOpportunityFound,
		Payload: domain.ArbitrageOpportunity{ID: "o1", Symbol: "BTC/USDT"},
	})
	// Non-opportunity events are ignored.
	bus.Publish(events.Event{Type: events.TypeTradeCompleted, Payload: domain.Trade{ID: "t1"}})
	bus.Publish(events.Event{
		Type:    events.TypeOpportunityFound,
		Payload: domain.ArbitrageOpportunity{ID: "o2", Symbol: "ETH/USDT"},
	})

	require.Eventually(t, func() bool {
		return store.count() == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "o1", store.inserted[0].ID)
	assert.Equal(t, "o2", store.inserted[1].ID)
}
