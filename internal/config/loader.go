package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setStr(&cfg.Mode, "ARBOT_MODE")
	setStr(&cfg.LogLevel, "ARBOT_LOG_LEVEL")
	setStringSlice(&cfg.Symbols, "ARBOT_SYMBOLS")

	// ── Venue credentials ──
	// One variable set per known venue: ARBOT_BINANCE_API_KEY,
	// ARBOT_BINANCE_SECRET, ARBOT_COINBASE_PASSPHRASE, and so on.
	for _, name := range []string{"binance", "coinbase", "kraken"} {
		v, ok := cfg.Venues[name]
		if !ok {
			continue
		}
		prefix := "ARBOT_" + strings.ToUpper(name)
		setStr(&v.APIKey, prefix+"_API_KEY")
		setStr(&v.Secret, prefix+"_SECRET")
		setStr(&v.Passphrase, prefix+"_PASSPHRASE")
		setBool(&v.Enabled, prefix+"_ENABLED")
		setBool(&v.Sandbox, prefix+"_SANDBOX")
		cfg.Venues[name] = v
	}

	// ── Trading ──
	setFloat64(&cfg.Trading.MinProfitThreshold, "ARBOT_TRADING_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Trading.MaxTradeAmount, "ARBOT_TRADING_MAX_TRADE_AMOUNT")
	setFloat64(&cfg.Trading.VolumeHardCap, "ARBOT_TRADING_VOLUME_HARD_CAP")
	setFloat64(&cfg.Trading.MaxSlippage, "ARBOT_TRADING_MAX_SLIPPAGE")
	setStr(&cfg.Trading.RiskLevel, "ARBOT_TRADING_RISK_LEVEL")
	setFloat64(&cfg.Trading.MaxRiskScore, "ARBOT_TRADING_MAX_RISK_SCORE")
	setInt(&cfg.Trading.MaxConcurrentTrades, "ARBOT_TRADING_MAX_CONCURRENT_TRADES")

	// ── Monitoring ──
	setDuration(&cfg.Monitoring.UpdateInterval, "ARBOT_MONITORING_UPDATE_INTERVAL")
	setInt(&cfg.Monitoring.PriceHistoryLimit, "ARBOT_MONITORING_PRICE_HISTORY_LIMIT")
	setFloat64(&cfg.Monitoring.AlertThreshold, "ARBOT_MONITORING_ALERT_THRESHOLD")
	setDuration(&cfg.Monitoring.Cooldown, "ARBOT_MONITORING_COOLDOWN")

	// ── Feeds ──
	setStr(&cfg.Feeds.BinanceWSHost, "ARBOT_FEEDS_BINANCE_WS_HOST")
	setDuration(&cfg.Feeds.ReconnectDelay, "ARBOT_FEEDS_RECONNECT_DELAY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBOT_REDIS_DB")
	setStr(&cfg.Redis.EventsChannel, "ARBOT_REDIS_EVENTS_CHANNEL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ARBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "ARBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "ARBOT_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.S3.Endpoint, "ARBOT_ARCHIVE_S3_ENDPOINT")
	setStr(&cfg.Archive.S3.Region, "ARBOT_ARCHIVE_S3_REGION")
	setStr(&cfg.Archive.S3.Bucket, "ARBOT_ARCHIVE_S3_BUCKET")
	setStr(&cfg.Archive.S3.AccessKey, "ARBOT_ARCHIVE_S3_ACCESS_KEY")
	setStr(&cfg.Archive.S3.SecretKey, "ARBOT_ARCHIVE_S3_SECRET_KEY")
	setBool(&cfg.Archive.S3.ForcePathStyle, "ARBOT_ARCHIVE_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.WebhookURL, "ARBOT_NOTIFY_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBOT_NOTIFY_EVENTS")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
