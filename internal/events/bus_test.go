package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(Event{Type: TypeStarted})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeStarted, ev.Type)
			assert.False(t, ev.At.IsZero(), "Publish must stamp the event")
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Flood well past the subscriber buffer without draining.
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(Event{Type: TypeOpportunityFound})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open, "cancel must close the subscriber channel")

	// Publishing after cancel must not panic.
	b.Publish(Event{Type: TypeStopped})
}

func TestBusClose(t *testing.T) {
	b := NewBus()
	ch, _ := b.Subscribe()
	b.Close()

	_, open := <-ch
	require.False(t, open)

	// Subsequent operations are no-ops.
	b.Publish(Event{Type: TypeStarted})
	b.Close()

	ch2, cancel2 := b.Subscribe()
	_, open = <-ch2
	assert.False(t, open, "subscribing after close returns a closed channel")
	cancel2()
}
