// Package config defines the top-level configuration for the arbitrage engine
// and provides validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
	Symbols  []string `toml:"symbols"`

	Venues     map[string]VenueConfig `toml:"venues"`
	Trading    TradingConfig          `toml:"trading"`
	Monitoring MonitoringConfig       `toml:"monitoring"`
	Feeds      FeedsConfig            `toml:"feeds"`
	Postgres   PostgresConfig         `toml:"postgres"`
	Redis      RedisConfig            `toml:"redis"`
	Archive    ArchiveConfig          `toml:"archive"`
	Notify     NotifyConfig           `toml:"notify"`
}

// VenueConfig holds per-venue credentials and flags. Reference and
// PriceOffsetPct apply to the paper venue only: its ticker mirrors the
// referenced venue's price shifted by the offset.
type VenueConfig struct {
	Enabled        bool    `toml:"enabled"`
	APIKey         string  `toml:"api_key"`
	Secret         string  `toml:"secret"`
	Passphrase     string  `toml:"passphrase"`
	Sandbox        bool    `toml:"sandbox"`
	Reference      string  `toml:"reference"`
	PriceOffsetPct float64 `toml:"price_offset_pct"`
}

// TradingConfig holds the parameters that gate detection and execution.
type TradingConfig struct {
	// MinProfitThreshold is the minimum profit percentage for an opportunity
	// to be emitted at all.
	MinProfitThreshold float64 `toml:"min_profit_threshold"`
	// MaxTradeAmount is the maximum notional per trade, in quote currency.
	MaxTradeAmount float64 `toml:"max_trade_amount"`
	// VolumeHardCap bounds trade volume in base units regardless of notional.
	VolumeHardCap float64 `toml:"volume_hard_cap"`
	// MaxSlippage is the maximum tolerated slippage percentage.
	MaxSlippage float64 `toml:"max_slippage"`
	// RiskLevel is an operator label: "low", "medium" or "high".
	RiskLevel string `toml:"risk_level"`
	// MaxRiskScore is the execution gate: opportunities scoring above it are
	// rejected. Inclusive bound.
	MaxRiskScore float64 `toml:"max_risk_score"`
	// MaxConcurrentTrades caps simultaneously executing trades.
	MaxConcurrentTrades int `toml:"max_concurrent_trades"`
}

// MonitoringConfig holds detection-loop and alerting parameters.
type MonitoringConfig struct {
	// UpdateInterval is the detection scan period.
	UpdateInterval duration `toml:"update_interval"`
	// PriceHistoryLimit is accepted for compatibility with existing agent
	// configs; the cache keeps only the latest sample per key.
	PriceHistoryLimit int `toml:"price_history_limit"`
	// AlertThreshold is the profit percentage above which opportunity alerts
	// are forwarded to notification channels.
	AlertThreshold float64 `toml:"alert_threshold"`
	// Cooldown suppresses re-emission of the same (symbol, buy, sell) spread
	// inside the window. Zero disables suppression.
	Cooldown duration `toml:"cooldown"`
}

// FeedsConfig holds streaming feed endpoints and reconnect behavior.
type FeedsConfig struct {
	BinanceWSHost  string   `toml:"binance_ws_host"`
	ReconnectDelay duration `toml:"reconnect_delay"`
}

// PostgresConfig holds PostgreSQL connection parameters for the sink.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional event-mirror connection parameters.
type RedisConfig struct {
	Enabled       bool   `toml:"enabled"`
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	EventsChannel string `toml:"events_channel"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	S3            S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	WebhookURL        string   `toml:"webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "250ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "1s" or "500ms".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Mode:     "trade",
		LogLevel: "info",
		Symbols:  []string{"BTC/USDT", "ETH/USDT", "ADA/USDT", "DOT/USDT"},
		Venues: map[string]VenueConfig{
			"paper": {Enabled: true},
		},
		Trading: TradingConfig{
			MinProfitThreshold:  0.5,
			MaxTradeAmount:      1000,
			VolumeHardCap:       1000,
			MaxSlippage:         0.5,
			RiskLevel:           "medium",
			MaxRiskScore:        0.7,
			MaxConcurrentTrades: 4,
		},
		Monitoring: MonitoringConfig{
			UpdateInterval:    duration{1 * time.Second},
			PriceHistoryLimit: 100,
			AlertThreshold:    1.0,
		},
		Feeds: FeedsConfig{
			BinanceWSHost:  "wss://stream.binance.com:9443/ws",
			ReconnectDelay: duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbot",
			User:          "arbot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			EventsChannel: "arbot.events",
		},
		Archive: ArchiveConfig{
			RetentionDays: 30,
			Interval:      duration{24 * time.Hour},
			S3: S3Config{
				Region:         "us-east-1",
				Bucket:         "arbot-archive",
				ForcePathStyle: true,
			},
		},
	}
}

// Validate checks the configuration for errors that would prevent the engine
// from starting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "trade", "monitor":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	enabled := 0
	for name, v := range c.Venues {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config: venue with empty name")
		}
		if v.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("config: no venues enabled")
	}
	if c.Trading.MinProfitThreshold < 0 {
		return fmt.Errorf("config: trading.min_profit_threshold must be >= 0")
	}
	if c.Trading.MaxTradeAmount <= 0 {
		return fmt.Errorf("config: trading.max_trade_amount must be > 0")
	}
	if c.Trading.VolumeHardCap <= 0 {
		return fmt.Errorf("config: trading.volume_hard_cap must be > 0")
	}
	if c.Trading.MaxRiskScore < 0 || c.Trading.MaxRiskScore > 1 {
		return fmt.Errorf("config: trading.max_risk_score must be in [0,1]")
	}
	if c.Trading.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("config: trading.max_concurrent_trades must be > 0")
	}
	if c.Monitoring.UpdateInterval.Duration <= 0 {
		return fmt.Errorf("config: monitoring.update_interval must be > 0")
	}
	if c.Feeds.ReconnectDelay.Duration <= 0 {
		return fmt.Errorf("config: feeds.reconnect_delay must be > 0")
	}
	if c.Archive.Enabled {
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive.retention_days must be > 0")
		}
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("config: archive.s3.bucket is required")
		}
	}
	return nil
}

// EnabledVenues returns the names of all enabled venues, sorted.
func (c *Config) EnabledVenues() []string {
	names := make([]string, 0, len(c.Venues))
	for name, v := range c.Venues {
		if v.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
