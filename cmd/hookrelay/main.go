// Command hookrelay runs the reorg-aware event ingestion service: it wires
// configuration, logging, telemetry, storage, the handler pipelines and the
// dispatch engine, then hands control to the CLI.
package main

import (
	"context"
	"log"

	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/extract"
	"github.com/gabapcia/hookrelay/internal/handlers/cli"
	"github.com/gabapcia/hookrelay/internal/handlers/httpapi"
	"github.com/gabapcia/hookrelay/internal/infra/chainhook"
	"github.com/gabapcia/hookrelay/internal/infra/storage/memory"
	redisstorage "github.com/gabapcia/hookrelay/internal/infra/storage/redis"
	"github.com/gabapcia/hookrelay/internal/pkg/logger"
	"github.com/gabapcia/hookrelay/internal/pkg/resilience/retry"
	"github.com/gabapcia/hookrelay/internal/pkg/telemetry"
	transporthttp "github.com/gabapcia/hookrelay/internal/pkg/transport/http"
	"github.com/gabapcia/hookrelay/internal/predreg"
	"github.com/gabapcia/hookrelay/internal/reorg"
	"github.com/gabapcia/hookrelay/internal/sinks"
	"github.com/gabapcia/hookrelay/internal/subroute"

	"github.com/kelseyhightower/envconfig"
)

// Subscription identifier namespaces the default pipelines are bound to.
const (
	dexSwapNamespace       = "dex-swap/"
	whaleTransferNamespace = "whale-transfer/"
	liquidityNamespace     = "liquidity/"
)

// config is loaded from HOOKRELAY_* environment variables.
type config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	OTELEnabled bool   `envconfig:"OTEL_ENABLED" default:"false"`

	// Redis is optional: without an address the service falls back to
	// in-memory state, locks and journal, which is fine for a single
	// instance only.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	WhaleThreshold  int64  `envconfig:"WHALE_THRESHOLD" default:"1000000000"`
	WhaleWebhookURL string `envconfig:"WHALE_WEBHOOK_URL"`
	RollbackOrder   string `envconfig:"ROLLBACK_ORDER" default:"oldest-first"`

	RegistryBaseURL string `envconfig:"REGISTRY_BASE_URL" default:"http://localhost:20456"`
	RegistryAPIKey  string `envconfig:"REGISTRY_API_KEY"`
}

func main() {
	ctx := context.Background()

	var cfg config
	envconfig.MustProcess("HOOKRELAY", &cfg)

	if cfg.OTELEnabled {
		shutdown, err := telemetry.Init(ctx, "hookrelay")
		if err != nil {
			log.Fatalf("telemetry init: %v", err)
		}
		defer shutdown(ctx)
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	var (
		stateStorage reorg.StateStorage
		locker       dispatch.SubscriptionLocker
		journal      sinks.Journal
	)
	if cfg.RedisAddr != "" {
		redisClient, err := redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal(ctx, "redis connection failed", "addr", cfg.RedisAddr, "error", err)
		}
		defer redisClient.Close()

		stateStorage, locker, journal = redisClient, redisClient, redisClient
	} else {
		logger.Warn(ctx, "no redis address configured, using in-memory storage (single instance only)")
		stateStorage = memory.NewStateStorage()
		locker = memory.NewSubscriptionLocker()
		journal = memory.NewJournal()
	}

	httpClient := transporthttp.NewClient()

	var whaleHandler subroute.Handler = sinks.NewEventLog("whale-alerts", journal)
	if cfg.WhaleWebhookURL != "" {
		whaleHandler = sinks.NewWebhook("whale-alerts", httpClient, cfg.WhaleWebhookURL)
	}

	router := subroute.NewBuilder().
		BindPrefix(dexSwapNamespace, subroute.Binding{
			Name:       "dex-swaps",
			Handler:    sinks.NewEventLog("dex-swaps", journal),
			Extractors: []extract.Extractor{extract.NewSwapExtractor()},
		}).
		BindPrefix(whaleTransferNamespace, subroute.Binding{
			Name:       "whale-alerts",
			Handler:    whaleHandler,
			Extractors: []extract.Extractor{extract.NewWhaleExtractor(cfg.WhaleThreshold)},
		}).
		BindPrefix(liquidityNamespace, subroute.Binding{
			Name:       "liquidity-events",
			Handler:    sinks.NewEventLog("liquidity-events", journal),
			Extractors: []extract.Extractor{extract.NewLiquidityExtractor()},
		}).
		Build()

	reconciler := reorg.New(stateStorage, reorg.WithRollbackOrder(reorg.RollbackOrder(cfg.RollbackOrder)))
	engine := dispatch.New(router, reconciler, locker, dispatch.WithRetry(retry.New()))
	server := httpapi.New(cfg.ListenAddr, engine)
	registry := predreg.New(chainhook.NewClient(httpClient, cfg.RegistryBaseURL, cfg.RegistryAPIKey))

	if err := cli.Run(ctx, registry, engine, server); err != nil {
		logger.Fatal(ctx, "hookrelay exited with error", "error", err)
	}
}
