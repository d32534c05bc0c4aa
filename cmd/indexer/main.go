package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopy-network/dao-indexer/internal/api"
	"github.com/canopy-network/dao-indexer/internal/api/handler"
	"github.com/canopy-network/dao-indexer/internal/backfill"
	"github.com/canopy-network/dao-indexer/internal/config"
	"github.com/canopy-network/dao-indexer/internal/db"
	"github.com/canopy-network/dao-indexer/internal/enrichment"
	"github.com/canopy-network/dao-indexer/internal/indexer"
	"github.com/canopy-network/dao-indexer/internal/listener"
	"github.com/canopy-network/dao-indexer/internal/orgs"
	"github.com/canopy-network/dao-indexer/internal/proposals"
	"github.com/canopy-network/dao-indexer/internal/publisher"
	"github.com/canopy-network/dao-indexer/internal/reconstruct"
	"github.com/canopy-network/dao-indexer/internal/worker"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)
	logger := newZapLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	slog.Info("starting dao-indexer",
		"rpc_endpoints", len(cfg.RPCURLs),
		"creator", cfg.Creator.Hex(),
		"scheme", cfg.Scheme.Hex(),
		"snapshot_source", cfg.SnapshotSource,
		"ws_enabled", cfg.WSEnabled,
	)

	// Connect to PostgreSQL
	stores, err := db.Connect(ctx, logger, cfg.PostgresURL, "indexer")
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	rpcClient, err := rpc.NewWithOpts(rpc.Opts{
		Endpoints: cfg.RPCURLs,
		Timeout:   cfg.RPCTimeout,
		CacheTTL:  cfg.RPCCacheTTL,
		RPS:       cfg.RPCRPS,
		Burst:     cfg.RPCBurst,
		SignerKey: cfg.SignerKey,
	})
	if err != nil {
		slog.Error("failed to create rpc client", "err", err)
		os.Exit(1)
	}
	defer rpcClient.Close()

	// Create publisher
	pub, err := publisher.New(redisClient, cfg.BlocksTopic)
	if err != nil {
		slog.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	// Create indexer
	idx := indexer.New(rpcClient, stores.Chain, stores.Admin, indexer.Config{
		Creator: cfg.Creator,
		Scheme:  cfg.Scheme,
	})

	// Create worker
	wrk, err := worker.New(worker.Config{
		RedisClient:   redisClient,
		Indexer:       idx,
		Topic:         cfg.BlocksTopic,
		ConsumerGroup: cfg.ConsumerGroup,
	})
	if err != nil {
		slog.Error("failed to create worker", "err", err)
		os.Exit(1)
	}
	defer wrk.Close()

	// Snapshot and proposal services
	var (
		describer reconstruct.Describer
		mirror    proposals.Publisher
	)
	if cfg.DescriptionAPIURL != "" {
		descriptions := enrichment.New(enrichment.Opts{BaseURL: cfg.DescriptionAPIURL})
		describer = descriptions
		mirror = descriptions
	}

	var events ledger.EventSource = rpcClient
	if cfg.SnapshotSource == config.SourceIndex {
		events = indexer.NewEventSource(stores.Chain)
	}

	recon := reconstruct.New(reconstruct.Config{
		Creator:      cfg.Creator,
		Scheme:       cfg.Scheme,
		GenesisBlock: cfg.GenesisBlock,
	}, rpcClient, events, describer)
	svc := proposals.New(cfg.Scheme, rpcClient, rpcClient, mirror)

	var founder handler.OrganizationCreator
	if cfg.AbsoluteVote != (common.Address{}) {
		founder = orgs.New(orgs.Config{
			Creator:       cfg.Creator,
			Scheme:        cfg.Scheme,
			VotingMachine: cfg.AbsoluteVote,
			Precision:     cfg.VotePrecision,
			OwnerVote:     cfg.VoteOwnerVote,
		}, rpcClient, rpcClient)
	}

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	var heads handler.ListenerReporter
	if cfg.WSEnabled {
		lst := newWSListener(ctx, cfg, pub)
		defer lst.Close()
		heads = lst
		g.Go(func() error {
			slog.Info("starting websocket listener", "url", cfg.WSURL)
			return lst.Run(ctx)
		})
	}

	g.Go(func() error {
		slog.Info("starting worker")
		return wrk.Run(ctx)
	})

	if cfg.HTTPEnabled {
		srv, err := api.NewServer(handler.Deps{
			Snapshots:     recon,
			Proposals:     svc,
			Organizations: founder,
			Progress:      stores.Admin,
			Queue:         wrk,
			Listener:      heads,
		}, logger, cfg.HTTPAddr, cfg.AdminToken)
		if err != nil {
			slog.Error("failed to create api server", "err", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	// Optional: Periodic gap health check
	if cfg.BackfillCheckInterval > 0 {
		bf := backfill.New(rpcClient, stores.Client, idx, &backfill.Config{GenesisHeight: cfg.GenesisBlock})
		g.Go(func() error {
			return runPeriodicHealthCheck(ctx, bf, wrk, cfg.BackfillCheckInterval)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("indexer error", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(level string) {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(handler))
}

// newZapLogger builds the logger used by the API and the Postgres stores.
func newZapLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// runPeriodicHealthCheck runs a periodic gap health check and logs queue depth.
func runPeriodicHealthCheck(ctx context.Context, bf *backfill.Backfiller, wrk *worker.Worker, interval time.Duration) error {
	slog.Info("starting periodic gap health check", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			wrk.LogQueueStats(ctx)

			stats, err := bf.CheckHealth(ctx)
			if err != nil {
				slog.Warn("gap health check failed", "err", err)
				continue
			}

			if stats.TotalMissing > 0 {
				slog.Warn("gaps detected during health check",
					"missing_blocks", stats.TotalMissing,
					"first_missing", stats.FirstMissing,
					"last_missing", stats.LastMissing,
				)
			} else {
				slog.Debug("gap health check passed, no missing blocks")
			}
		}
	}
}

// newWSListener subscribes to new heads and queues each height for indexing.
func newWSListener(ctx context.Context, cfg *config.Config, pub *publisher.Publisher) *listener.Listener {
	return listener.New(listener.Config{
		URL:            cfg.WSURL,
		MaxRetries:     cfg.WSMaxRetries,
		ReconnectDelay: cfg.WSReconnectDelay,
	}, func(height uint64) {
		if err := pub.PublishBlock(ctx, height); err != nil {
			slog.Error("failed to publish block", "height", height, "err", err)
		}
	})
}
