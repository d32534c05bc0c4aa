package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/canopy-network/dao-indexer/internal/backfill"
	"github.com/canopy-network/dao-indexer/internal/config"
	"github.com/canopy-network/dao-indexer/internal/db"
	"github.com/canopy-network/dao-indexer/internal/indexer"
	"github.com/canopy-network/dao-indexer/pkg/rpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Parse flags
	dryRun := flag.Bool("dry-run", false, "Only report gaps, don't index")
	startHeight := flag.Uint64("start", 0, "Start height (default: GENESIS_BLOCK)")
	endHeight := flag.Uint64("end", 0, "End height (default: current chain height)")
	batchSize := flag.Int("batch", 0, "Batch size (default: 1000)")
	concurrency := flag.Int("concurrency", 0, "Number of concurrent ranges (default: 4)")
	statsOnly := flag.Bool("stats", false, "Only show gap statistics")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load base configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)
	logger := newZapLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	slog.Info("dao-indexer backfill starting",
		"creator", cfg.Creator.Hex(),
		"genesis_block", cfg.GenesisBlock,
	)

	// Connect to PostgreSQL
	stores, err := db.Connect(ctx, logger, cfg.PostgresURL, "backfill")
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	rpcClient, err := rpc.NewWithOpts(rpc.Opts{
		Endpoints: cfg.RPCURLs,
		Timeout:   cfg.RPCTimeout,
		CacheTTL:  cfg.RPCCacheTTL,
		RPS:       cfg.RPCRPS,
		Burst:     cfg.RPCBurst,
	})
	if err != nil {
		slog.Error("failed to create rpc client", "err", err)
		os.Exit(1)
	}
	defer rpcClient.Close()

	// Create indexer
	idx := indexer.New(rpcClient, stores.Chain, stores.Admin, indexer.Config{
		Creator: cfg.Creator,
		Scheme:  cfg.Scheme,
	})

	// Build backfill config
	backfillCfg := backfill.LoadConfig()
	backfillCfg.GenesisHeight = cfg.GenesisBlock

	// Override with flags if provided
	if *dryRun {
		backfillCfg.DryRun = true
	}
	if *startHeight > 0 {
		backfillCfg.StartHeight = *startHeight
	}
	if *endHeight > 0 {
		backfillCfg.EndHeight = *endHeight
	}
	if *batchSize > 0 {
		backfillCfg.BatchSize = *batchSize
	}
	if *concurrency > 0 {
		backfillCfg.Concurrency = *concurrency
	}

	bf := backfill.New(rpcClient, stores.Client, idx, backfillCfg)

	// Stats only mode
	if *statsOnly {
		stats, err := bf.CheckHealth(ctx)
		if err != nil {
			slog.Error("failed to check health", "err", err)
			os.Exit(1)
		}

		fmt.Printf("Gap Statistics:\n")
		fmt.Printf("  Total Expected: %d\n", stats.TotalExpected)
		fmt.Printf("  Total Indexed:  %d\n", stats.TotalIndexed)
		fmt.Printf("  Total Missing:  %d\n", stats.TotalMissing)
		if stats.TotalMissing > 0 {
			fmt.Printf("  First Missing:  %d\n", stats.FirstMissing)
			fmt.Printf("  Last Missing:   %d\n", stats.LastMissing)
			completionPct := float64(stats.TotalIndexed) / float64(stats.TotalExpected) * 100
			fmt.Printf("  Completion:     %.2f%%\n", completionPct)
		} else {
			fmt.Printf("  Completion:     100%%\n")
		}
		return
	}

	result, err := bf.Run(ctx)
	if err != nil && ctx.Err() == nil {
		slog.Error("backfill failed", "err", err)
		os.Exit(1)
	}
	if result == nil {
		return
	}

	// Print summary
	fmt.Printf("\nBackfill Summary:\n")
	fmt.Printf("  Organizations:   %d\n", result.Organizations)
	fmt.Printf("  Total Missing:   %d\n", result.TotalMissing)
	fmt.Printf("  Total Processed: %d\n", result.TotalProcessed)
	fmt.Printf("  Total Succeeded: %d\n", result.TotalSucceeded)
	fmt.Printf("  Total Failed:    %d\n", result.TotalFailed)
	fmt.Printf("  Duration:        %s\n", result.Duration)

	if result.TotalFailed > 0 {
		fmt.Printf("\n  Failed ranges (%d):\n", len(result.Errors))
		for i, err := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %v\n", err)
		}
		os.Exit(1)
	}

	slog.Info("backfill complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

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
