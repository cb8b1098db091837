package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	s3blob "github.com/lucidlabs/arbot/internal/blob/s3"
	"github.com/lucidlabs/arbot/internal/config"
	"github.com/lucidlabs/arbot/internal/domain"
	"github.com/lucidlabs/arbot/internal/events"
	"github.com/lucidlabs/arbot/internal/exchange"
	"github.com/lucidlabs/arbot/internal/marketdata"
	"github.com/lucidlabs/arbot/internal/notify"
	"github.com/lucidlabs/arbot/internal/pipeline"
	"github.com/lucidlabs/arbot/internal/stats"
	"github.com/lucidlabs/arbot/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache    *marketdata.Cache
	Bus      *events.Bus
	Adapters map[string]exchange.Adapter

	// Stores are nil when postgres is disabled; the engine then runs without
	// a persistence sink.
	OpportunityStore domain.OpportunityStore
	TradeStore       domain.TradeStore

	// Archiver is nil unless both archive and postgres are enabled.
	Archiver *pipeline.Archiver

	// Redis is nil when the event mirror is disabled.
	Redis *redis.Client

	Notifier *notify.Notifier
	Tracker  *stats.Tracker
}

// Wire constructs all concrete dependencies from the configuration. Venues
// whose adapter fails to initialize are logged and excluded; startup aborts
// only when no venue survives.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Cache:   marketdata.NewCache(),
		Bus:     events.NewBus(),
		Tracker: stats.NewTracker(),
	}
	closers = append(closers, deps.Bus.Close)

	// --- Venue adapters ---
	deps.Adapters = make(map[string]exchange.Adapter)
	for _, name := range cfg.EnabledVenues() {
		adapter, err := exchange.New(name, cfg.Venues[name], deps.Cache)
		if err != nil {
			logger.Warn("venue excluded",
				slog.String("venue", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		deps.Adapters[name] = adapter
	}
	if len(deps.Adapters) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", domain.ErrNoVenues)
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
	}

	// --- Redis event mirror ---
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis ping: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Redis = rdb
	}

	// --- S3 archive ---
	if cfg.Archive.Enabled {
		if deps.OpportunityStore == nil {
			logger.Warn("archive enabled without postgres, skipping archiver")
		} else {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.Archive.S3.Endpoint,
				Region:         cfg.Archive.S3.Region,
				Bucket:         cfg.Archive.S3.Bucket,
				AccessKey:      cfg.Archive.S3.AccessKey,
				SecretKey:      cfg.Archive.S3.SecretKey,
				ForcePathStyle: cfg.Archive.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			deps.Archiver = pipeline.NewArchiver(
				s3blob.NewWriter(s3Client),
				deps.OpportunityStore,
				deps.TradeStore,
				cfg.Archive.RetentionDays,
				logger,
			)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
