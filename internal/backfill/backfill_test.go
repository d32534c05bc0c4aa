package backfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRanges(t *testing.T) {
	tests := []struct {
		name    string
		heights []uint64
		max     int
		want    []Range
	}{
		{"empty", nil, 10, nil},
		{"single", []uint64{7}, 10, []Range{{7, 7}}},
		{"contiguous", []uint64{1, 2, 3, 4}, 10, []Range{{1, 4}}},
		{"split on gap", []uint64{1, 2, 5, 6, 9}, 10, []Range{{1, 2}, {5, 6}, {9, 9}}},
		{"split on size", []uint64{1, 2, 3, 4, 5}, 2, []Range{{1, 2}, {3, 4}, {5, 5}}},
		{"non-positive max", []uint64{1, 2}, 0, []Range{{1, 1}, {2, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanRanges(tt.heights, tt.max))
		})
	}
}

type fakeIndexer struct {
	discovered [][2]uint64
	found      int
	err        error
}

func (f *fakeIndexer) DiscoverOrganizations(_ context.Context, from, to uint64) (int, error) {
	f.discovered = append(f.discovered, [2]uint64{from, to})
	return f.found, f.err
}

func (f *fakeIndexer) IndexRange(context.Context, uint64, uint64) error {
	return nil
}

func TestDiscoverChunks(t *testing.T) {
	idx := &fakeIndexer{found: 1}
	b := New(nil, nil, idx, &Config{GenesisHeight: 100, DiscoveryChunk: 50})

	n, err := b.discover(context.Background(), 220)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][2]uint64{{100, 149}, {150, 199}, {200, 220}}, idx.discovered)
}

func TestDiscoverError(t *testing.T) {
	boom := errors.New("rpc down")
	b := New(nil, nil, &fakeIndexer{err: boom}, &Config{DiscoveryChunk: 10})

	_, err := b.discover(context.Background(), 5)
	require.ErrorIs(t, err, boom)
}

func TestStartHeight(t *testing.T) {
	assert.Equal(t, uint64(1), New(nil, nil, nil, &Config{}).startHeight())
	assert.Equal(t, uint64(40), New(nil, nil, nil, &Config{GenesisHeight: 40}).startHeight())
	assert.Equal(t, uint64(90), New(nil, nil, nil, &Config{GenesisHeight: 40, StartHeight: 90}).startHeight())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("BACKFILL_BATCH_SIZE", "250")
	t.Setenv("BACKFILL_CONCURRENCY", "-1")
	t.Setenv("BACKFILL_MAX_RANGE", "20")
	t.Setenv("BACKFILL_START_HEIGHT", "1000")
	t.Setenv("BACKFILL_DRY_RUN", "1")
	t.Setenv("BACKFILL_PROGRESS_INTERVAL", "2s")

	cfg := LoadConfig()
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, DefaultConfig().Concurrency, cfg.Concurrency)
	assert.Equal(t, 20, cfg.MaxRangeSize)
	assert.Equal(t, uint64(1000), cfg.StartHeight)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 2*time.Second, cfg.ProgressInterval)
}
