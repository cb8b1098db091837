package pipeline

import (
	"context"
	"log/slog"

	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
)

// Recorder persists detected opportunities as they appear on the event bus.
// Trade records are written by the executor itself; opportunities flow
// through here so that monitor mode, which runs no executor, still builds a
// queryable history.
type Recorder struct {
	bus    *events.Bus
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing opportunityFound events to store.
func NewRecorder(bus *events.Bus, store domain.OpportunityStore, logger *slog.Logger) *Recorder {
	return &Recorder{
		bus:    bus,
		store:  store,
		logger: logger.With(slog.String("component", "recorder")),
	}
}

// Run consumes events until the context is cancelled or the bus closes.
// Persistence failures are logged and skipped; a database outage must not
// stall detection.
func (r *Recorder) Run(ctx context.Context) error {
	ch, cancel := r.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if ev.Type != events.TypeOpportunityFound {
				continue
			}
			opp, ok := ev.Payload.(domain.ArbitrageOpportunity)
			if !ok {
				continue
			}
			if err := r.store.Insert(ctx, opp); err != nil {
				r.logger.ErrorContext(ctx, "failed to persist opportunity",
					slog.String("id", opp.ID),
					slog.String("symbol", opp.Symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
