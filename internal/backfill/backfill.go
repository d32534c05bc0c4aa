// Package backfill indexes block heights that have no progress row yet.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadReader reports the current chain height.
type HeadReader interface {
	ChainHead(ctx context.Context) (uint64, error)
}

// RangeIndexer is the part of the indexer the backfill drives.
type RangeIndexer interface {
	DiscoverOrganizations(ctx context.Context, from, to uint64) (int, error)
	IndexRange(ctx context.Context, from, to uint64) error
}

// Result contains the results of a backfill operation.
type Result struct {
	TotalMissing   uint64
	TotalProcessed uint64
	TotalSucceeded uint64
	TotalFailed    uint64
	Organizations  int
	Duration       time.Duration
	Errors         []error
}

// Backfiller handles backfilling missing blocks.
type Backfiller struct {
	rpc     HeadReader
	db      Querier
	indexer RangeIndexer
	config  *Config
}

// New creates a new Backfiller.
func New(rpcClient HeadReader, db Querier, idx RangeIndexer, cfg *Config) *Backfiller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Backfiller{
		rpc:     rpcClient,
		db:      db,
		indexer: idx,
		config:  cfg,
	}
}

func (b *Backfiller) startHeight() uint64 {
	if b.config.StartHeight > 0 {
		return b.config.StartHeight
	}
	if b.config.GenesisHeight > 0 {
		return b.config.GenesisHeight
	}
	return 1
}

// Run executes the backfill operation.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	startHeight := b.startHeight()
	endHeight := b.config.EndHeight
	if endHeight == 0 {
		height, err := b.rpc.ChainHead(ctx)
		if err != nil {
			return nil, fmt.Errorf("get chain head: %w", err)
		}
		endHeight = height
		slog.Info("fetched chain head from RPC", "height", endHeight)
	}

	slog.Info("starting backfill",
		"start_height", startHeight,
		"end_height", endHeight,
		"batch_size", b.config.BatchSize,
		"max_range", b.config.MaxRangeSize,
		"concurrency", b.config.Concurrency,
		"dry_run", b.config.DryRun,
	)

	stats, err := GetGapStats(ctx, b.db, startHeight, endHeight)
	if err != nil {
		return nil, fmt.Errorf("get gap stats: %w", err)
	}

	slog.Info("gap analysis complete",
		"total_expected", stats.TotalExpected,
		"total_indexed", stats.TotalIndexed,
		"total_missing", stats.TotalMissing,
		"first_missing", stats.FirstMissing,
		"last_missing", stats.LastMissing,
	)

	result.TotalMissing = stats.TotalMissing

	if stats.TotalMissing == 0 {
		slog.Info("no missing blocks found")
		result.Duration = time.Since(start)
		return result, nil
	}

	if b.config.DryRun {
		slog.Info("dry run complete, no blocks indexed")
		result.Duration = time.Since(start)
		return result, nil
	}

	// Ranges run concurrently, so every organization must be registered before
	// any range that holds its logs is indexed.
	orgs, err := b.discover(ctx, endHeight)
	if err != nil {
		return nil, err
	}
	result.Organizations = orgs

	var errorsMu sync.Mutex
	var processed, succeeded, failed atomic.Uint64

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()
	go b.reportProgress(progressCtx, stats.TotalMissing, &processed, &succeeded, &failed)

	currentStart := startHeight
	for currentStart <= endHeight {
		if ctx.Err() != nil {
			break
		}

		heights, err := FindMissingHeights(ctx, b.db, currentStart, endHeight, b.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("find missing heights: %w", err)
		}
		if len(heights) == 0 {
			break
		}

		ranges := PlanRanges(heights, b.config.MaxRangeSize)
		slog.Debug("processing batch",
			"batch_start", heights[0],
			"batch_end", heights[len(heights)-1],
			"heights", len(heights),
			"ranges", len(ranges),
		)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(b.config.Concurrency)

		for _, r := range ranges {
			r := r
			g.Go(func() error {
				err := b.indexer.IndexRange(gCtx, r.From, r.To)
				processed.Add(r.Len())
				if err != nil {
					failed.Add(r.Len())
					errorsMu.Lock()
					result.Errors = append(result.Errors, fmt.Errorf("range [%d, %d]: %w", r.From, r.To, err))
					errorsMu.Unlock()
					slog.Error("failed to index range",
						"from", r.From,
						"to", r.To,
						"err", err,
					)
					// The heights stay missing for the next run.
					return nil
				}
				succeeded.Add(r.Len())
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			break
		}

		currentStart = heights[len(heights)-1] + 1
	}

	result.TotalProcessed = processed.Load()
	result.TotalSucceeded = succeeded.Load()
	result.TotalFailed = failed.Load()
	result.Duration = time.Since(start)

	slog.Info("backfill complete",
		"total_missing", result.TotalMissing,
		"total_processed", result.TotalProcessed,
		"total_succeeded", result.TotalSucceeded,
		"total_failed", result.TotalFailed,
		"organizations", result.Organizations,
		"duration", result.Duration,
	)

	return result, ctx.Err()
}

// discover registers every organization created between genesis and end, in
// chunks small enough for eth_getLogs.
func (b *Backfiller) discover(ctx context.Context, end uint64) (int, error) {
	chunk := b.config.DiscoveryChunk
	if chunk == 0 {
		chunk = DefaultConfig().DiscoveryChunk
	}

	total := 0
	for from := b.config.GenesisHeight; from <= end; from += chunk {
		to := min(from+chunk-1, end)
		n, err := b.indexer.DiscoverOrganizations(ctx, from, to)
		if err != nil {
			return total, fmt.Errorf("discover organizations [%d, %d]: %w", from, to, err)
		}
		total += n
	}

	slog.Info("organization discovery complete", "organizations", total)
	return total, nil
}

// reportProgress logs progress at regular intervals.
func (b *Backfiller) reportProgress(ctx context.Context, total uint64, processed, succeeded, failed *atomic.Uint64) {
	if b.config.ProgressInterval <= 0 {
		return
	}
	ticker := time.NewTicker(b.config.ProgressInterval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := processed.Load()
			s := succeeded.Load()
			f := failed.Load()

			elapsed := time.Since(startTime)
			rate := float64(p) / elapsed.Seconds()

			var eta time.Duration
			if rate > 0 && p < total {
				remaining := total - p
				eta = time.Duration(float64(remaining)/rate) * time.Second
			}

			progress := float64(p) / float64(total) * 100

			slog.Info("backfill progress",
				"processed", p,
				"total", total,
				"progress_pct", fmt.Sprintf("%.1f%%", progress),
				"succeeded", s,
				"failed", f,
				"rate_per_sec", fmt.Sprintf("%.1f", rate),
				"eta", eta.Round(time.Second),
			)
		}
	}
}

// CheckHealth performs a quick gap check and returns stats.
func (b *Backfiller) CheckHealth(ctx context.Context) (*GapStats, error) {
	endHeight, err := b.rpc.ChainHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain head: %w", err)
	}

	return GetGapStats(ctx, b.db, b.startHeight(), endHeight)
}
