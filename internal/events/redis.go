package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mirror forwards engine events to a Redis Pub/Sub channel so out-of-process
// collaborators (storefront, dashboards) can observe the engine without a
// direct dependency. Delivery is fire-and-forget; the engine never depends on
// the mirror for correctness.
type Mirror struct {
	rdb     *redis.Client
	bus     *Bus
	channel string
	logger  *slog.Logger
}

// NewMirror creates a Mirror that republishes bus events onto the given Redis
// channel.
func NewMirror(rdb *redis.Client, bus *Bus, channel string, logger *slog.Logger) *Mirror {
	return &Mirror{
		rdb:     rdb,
		bus:     bus,
		channel: channel,
		logger:  logger.With(slog.String("component", "event_mirror")),
	}
}

// wireEvent is the JSON shape published to Redis.
type wireEvent struct {
	Type      Type   `json:"type"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// Run subscribes to the bus and republishes every event until ctx is
// cancelled. Publish failures are logged and skipped.
func (m *Mirror) Run(ctx context.Context) error {
	ch, cancel := m.bus.Subscribe()
	defer cancel()

	m.logger.Info("event mirror started", slog.String("channel", m.channel))
	defer m.logger.Info("event mirror stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := m.publish(ctx, ev); err != nil {
				m.logger.Warn("event mirror publish failed",
					slog.String("type", string(ev.Type)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (m *Mirror) publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(wireEvent{
		Type:      ev.Type,
		Timestamp: ev.At.Format(time.RFC3339Nano),
		Payload:   ev.Payload,
	})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", ev.Type, err)
	}
	if err := m.rdb.Publish(ctx, m.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", m.channel, err)
	}
	return nil
}
