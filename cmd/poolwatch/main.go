package main

import (
	"context"
	"time"

	"github.com/gabapcia/poolwatch/internal/alerting"
	"github.com/gabapcia/poolwatch/internal/config"
	"github.com/gabapcia/poolwatch/internal/handlers/cli"
	"github.com/gabapcia/poolwatch/internal/heartbeat"
	"github.com/gabapcia/poolwatch/internal/infra/blockchain/evm"
	"github.com/gabapcia/poolwatch/internal/infra/notify/bark"
	"github.com/gabapcia/poolwatch/internal/infra/storage/file"
	"github.com/gabapcia/poolwatch/internal/infra/storage/redis"
	"github.com/gabapcia/poolwatch/internal/pkg/logger"
	"github.com/gabapcia/poolwatch/internal/pkg/telemetry"
	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			panic(err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		panic(err)
	}
	defer logger.Sync()

	trackedEvents, err := cfg.ParsedTrackedEvents()
	if err != nil {
		logger.Fatal(ctx, "invalid tracked events", "error", err)
	}
	if err := evm.ValidateStateFields(cfg.StateFields); err != nil {
		logger.Fatal(ctx, "invalid state fields", "error", err)
	}

	decoder, err := evm.NewDecoder(trackedEvents)
	if err != nil {
		logger.Fatal(ctx, "building event decoder", "error", err)
	}

	chain, err := evm.NewClient(ctx, cfg.RPCURL, cfg.ContractAddress, decoder.TopicFilter())
	if err != nil {
		logger.Fatal(ctx, "connecting to chain node", "error", err)
	}
	defer chain.Close()

	cursorStore, cleanup, err := buildCursorStore(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "building cursor store", "error", err)
	}
	defer cleanup()

	tokens, err := alerting.ParseTokenRegistry(cfg.Tokens)
	if err != nil {
		logger.Fatal(ctx, "invalid token registry", "error", err)
	}

	notifier, err := bark.New(cfg.BarkKey, bark.WithServer(cfg.BarkServer))
	if err != nil {
		logger.Fatal(ctx, "building notifier", "error", err)
	}

	dispatcher := alerting.New(notifier,
		alerting.WithTokenRegistry(tokens),
		alerting.WithGroup(cfg.NotificationGroup),
		alerting.WithMaxAttempts(cfg.DeliveryMaxAttempts),
		alerting.WithBackoff(cfg.DeliveryBaseDelay, cfg.DeliveryMaxDelay),
	)

	monitor := poolwatch.New(chain, decoder, dispatcher,
		poolwatch.WithCursorStorage(cursorStore),
		poolwatch.WithPollInterval(cfg.PollInterval),
		poolwatch.WithErrorBackoff(cfg.ErrorBackoff),
		poolwatch.WithMaxBlockRange(cfg.MaxBlockRange),
		poolwatch.WithStateFields(cfg.StateFields),
	)

	var beat heartbeat.Service
	if cfg.HeartbeatInterval > 0 {
		beat = heartbeat.New(notifier, heartbeat.WithInterval(cfg.HeartbeatInterval))
	}

	if err := cli.Run(ctx, monitor, beat, chain, notifier); err != nil {
		logger.Fatal(ctx, "command failed", "error", err)
	}
}

// buildCursorStore picks Redis when an address is configured, otherwise the
// local JSON file. The returned cleanup releases whichever backend was
// opened.
func buildCursorStore(ctx context.Context, cfg config.Config) (poolwatch.CursorStorage, func(), error) {
	if cfg.UseRedisCursor() {
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return client.CursorStore(cfg.ContractAddress), func() { client.Close() }, nil
	}

	store, err := file.NewCursorStore(cfg.CursorPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}
