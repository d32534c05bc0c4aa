package backfill

import (
	"os"
	"strconv"
	"time"
)

// Config holds backfill-specific configuration.
type Config struct {
	// BatchSize is the number of missing heights loaded per round.
	BatchSize int

	// Concurrency is the number of ranges indexed at once.
	Concurrency int

	// MaxRangeSize caps the blocks covered by one eth_getLogs range.
	MaxRangeSize int

	// DiscoveryChunk is the block span of each organization discovery query.
	DiscoveryChunk uint64

	// GenesisHeight is where organization discovery starts.
	GenesisHeight uint64

	// StartHeight overrides the start of the range (default: GenesisHeight).
	StartHeight uint64

	// EndHeight overrides the end of the range (default: current chain height).
	// Use 0 to fetch from RPC.
	EndHeight uint64

	// DryRun only reports gaps without indexing.
	DryRun bool

	// ProgressInterval is how often to log progress.
	ProgressInterval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        1000,
		Concurrency:      4,
		MaxRangeSize:     100,
		DiscoveryChunk:   5000,
		EndHeight:        0,
		DryRun:           false,
		ProgressInterval: 10 * time.Second,
	}
}

// LoadConfig loads backfill configuration from environment variables.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("BACKFILL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	if v := os.Getenv("BACKFILL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}

	if v := os.Getenv("BACKFILL_MAX_RANGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRangeSize = n
		}
	}

	if v := os.Getenv("BACKFILL_DISCOVERY_CHUNK"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.DiscoveryChunk = n
		}
	}

	if v := os.Getenv("BACKFILL_START_HEIGHT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StartHeight = n
		}
	}

	if v := os.Getenv("BACKFILL_END_HEIGHT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EndHeight = n
		}
	}

	if v := os.Getenv("BACKFILL_DRY_RUN"); v == "true" || v == "1" {
		cfg.DryRun = true
	}

	if v := os.Getenv("BACKFILL_PROGRESS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProgressInterval = d
		}
	}

	return cfg
}
