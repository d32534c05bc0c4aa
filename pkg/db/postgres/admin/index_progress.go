package admin

import (
	"context"
	"fmt"

	adminmodels "github.com/canopy-network/dao-indexer/pkg/db/models/admin"
	"github.com/jackc/pgx/v5"
)

// initIndexProgress creates the index_progress table
// One row per indexed block height.
func (db *DB) initIndexProgress(ctx context.Context) error {
	table := db.SchemaTable(adminmodels.IndexProgressTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			height BIGINT PRIMARY KEY,
			events INTEGER NOT NULL DEFAULT 0,
			indexed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			indexing_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_index_progress_indexed_at ON %s(indexed_at);
	`, table, table)

	return db.Exec(ctx, query)
}

func (db *DB) recordIndexedSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (height, events, indexed_at, indexing_time_ms)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (height) DO UPDATE SET
			events = EXCLUDED.events,
			indexed_at = NOW(),
			indexing_time_ms = EXCLUDED.indexing_time_ms
	`, db.SchemaTable(adminmodels.IndexProgressTableName))
}

// QueueIndexed adds RecordIndexed to batch so progress commits with the data.
func (db *DB) QueueIndexed(batch *pgx.Batch, height uint64, events int, indexingTimeMs float64) {
	batch.Queue(db.recordIndexedSQL(), int64(height), events, indexingTimeMs)
}

// LastIndexed returns the highest indexed height
func (db *DB) LastIndexed(ctx context.Context) (uint64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(height), 0)
		FROM %s
	`, db.SchemaTable(adminmodels.IndexProgressTableName))

	var height int64
	err := db.QueryRow(ctx, query).Scan(&height)
	if err != nil {
		return 0, fmt.Errorf("failed to query last indexed height: %w", err)
	}

	return uint64(height), nil
}

// FindGaps returns missing [From, To] heights strictly inside observed heights,
// and does NOT include the trailing gap to 'up to'. The caller should add a tail gap separately.
func (db *DB) FindGaps(ctx context.Context) ([]adminmodels.Gap, error) {
	query := fmt.Sprintf(`
		SELECT (prev_h + 1)::BIGINT AS from_h, (h - 1)::BIGINT AS to_h
		FROM (
			SELECT
				height AS h,
				LAG(height) OVER (ORDER BY height) AS prev_h
			FROM %s
		) t
		WHERE prev_h IS NOT NULL AND h > prev_h + 1
		ORDER BY from_h
	`, db.SchemaTable(adminmodels.IndexProgressTableName))

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []adminmodels.Gap
	for rows.Next() {
		var from, to int64
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan gap: %w", err)
		}
		gaps = append(gaps, adminmodels.Gap{From: uint64(from), To: uint64(to)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return gaps, nil
}

// IndexProgressHistory returns index progress metrics grouped by time intervals
func (db *DB) IndexProgressHistory(ctx context.Context, hours, intervalMinutes int) ([]adminmodels.ProgressPoint, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = 1
	}
	query := fmt.Sprintf(`
		SELECT
			to_timestamp(floor(extract(epoch FROM indexed_at) / $2) * $2) AS time_bucket,
			MAX(height) AS max_height,
			AVG(indexing_time_ms) AS avg_processing_time,
			COUNT(*) AS blocks_indexed,
			COALESCE(SUM(events), 0) AS events_indexed
		FROM %s
		WHERE indexed_at >= NOW() - INTERVAL '1 hour' * $1
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, db.SchemaTable(adminmodels.IndexProgressTableName))

	rows, err := db.Query(ctx, query, float64(hours), float64(intervalMinutes*60))
	if err != nil {
		return nil, fmt.Errorf("query progress history: %w", err)
	}
	defer rows.Close()

	var points []adminmodels.ProgressPoint
	for rows.Next() {
		var (
			p                     adminmodels.ProgressPoint
			maxHeight, blocks, ev int64
		)
		if err := rows.Scan(&p.TimeBucket, &maxHeight, &p.AvgProcessingTime, &blocks, &ev); err != nil {
			return nil, fmt.Errorf("scan progress point: %w", err)
		}
		p.MaxHeight = uint64(maxHeight)
		p.BlocksIndexed = uint64(blocks)
		p.EventsIndexed = uint64(ev)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return points, nil
}
