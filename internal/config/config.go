// Package config loads the monitor's runtime configuration from the
// environment and validates it before anything gets wired.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/gabapcia/poolwatch/internal/pkg/validator"
	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

// envPrefix namespaces every variable, e.g. POOLWATCH_RPC_URL.
const envPrefix = "poolwatch"

// Config is the full runtime configuration. Every field maps to one
// POOLWATCH_* environment variable.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Chain access.
	RPCURL          string        `envconfig:"RPC_URL" validate:"required"`
	ContractAddress string        `envconfig:"CONTRACT_ADDRESS" validate:"required"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"15s"`
	ErrorBackoff    time.Duration `envconfig:"ERROR_BACKOFF" default:"30s"`
	MaxBlockRange   uint64        `envconfig:"MAX_BLOCK_RANGE" default:"1000" validate:"gt=0"`

	// What to watch.
	TrackedEvents []string `envconfig:"TRACKED_EVENTS" default:"deposit,withdraw,borrow,repay,liquidation,flashloan"`
	StateFields   []string `envconfig:"STATE_FIELDS"`

	// Token metadata, one entry per asset: "address:symbol:decimals[:limit]".
	Tokens []string `envconfig:"TOKENS"`

	// Notification channel.
	BarkKey             string        `envconfig:"BARK_KEY" validate:"required"`
	BarkServer          string        `envconfig:"BARK_SERVER" default:"https://api.day.app"`
	NotificationGroup   string        `envconfig:"NOTIFICATION_GROUP" default:"poolwatch"`
	DeliveryMaxAttempts uint          `envconfig:"DELIVERY_MAX_ATTEMPTS" default:"5" validate:"gt=0"`
	DeliveryBaseDelay   time.Duration `envconfig:"DELIVERY_BASE_DELAY" default:"1s"`
	DeliveryMaxDelay    time.Duration `envconfig:"DELIVERY_MAX_DELAY" default:"30s"`

	// Cursor persistence. Redis wins over the local file when an address is
	// set.
	CursorPath    string `envconfig:"CURSOR_PATH" default:"poolwatch-cursor.json"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`

	// Liveness. Zero disables the heartbeat.
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"8h"`

	// Telemetry export over OTLP. Disabled unless an endpoint is configured
	// through the standard OTEL_EXPORTER_* variables.
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"poolwatch"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	if _, err := cfg.ParsedTrackedEvents(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParsedTrackedEvents converts the configured kind names into event kinds.
func (c Config) ParsedTrackedEvents() ([]poolwatch.EventKind, error) {
	kinds := make([]poolwatch.EventKind, 0, len(c.TrackedEvents))
	for _, name := range c.TrackedEvents {
		kind, ok := poolwatch.ParseEventKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown tracked event %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// UseRedisCursor reports whether the cursor should live in Redis instead of
// the local file.
func (c Config) UseRedisCursor() bool {
	return c.RedisAddr != ""
}
