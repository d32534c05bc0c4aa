package backfill

import (
	"context"
	"fmt"

	adminmodels "github.com/canopy-network/dao-indexer/pkg/db/models/admin"
	"github.com/jackc/pgx/v5"
)

const progressTable = "admin." + adminmodels.IndexProgressTableName

// Querier is satisfied by *pgxpool.Pool and *postgres.Client.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GapStats contains statistics about detected gaps.
type GapStats struct {
	TotalExpected uint64 `json:"total_expected"` // Total blocks expected in range
	TotalIndexed  uint64 `json:"total_indexed"`  // Blocks already indexed
	TotalMissing  uint64 `json:"total_missing"`  // Blocks missing
	FirstMissing  uint64 `json:"first_missing"`  // First missing height (0 if none)
	LastMissing   uint64 `json:"last_missing"`   // Last missing height (0 if none)
}

// Range is an inclusive run of consecutive heights.
type Range struct {
	From uint64
	To   uint64
}

// Len returns the number of heights in the range.
func (r Range) Len() uint64 {
	return r.To - r.From + 1
}

// PlanRanges groups sorted heights into runs of consecutive heights, each at
// most maxSize long.
func PlanRanges(heights []uint64, maxSize int) []Range {
	if maxSize <= 0 {
		maxSize = 1
	}
	var ranges []Range
	for _, h := range heights {
		if n := len(ranges); n > 0 {
			last := &ranges[n-1]
			if h == last.To+1 && last.Len() < uint64(maxSize) {
				last.To = h
				continue
			}
		}
		ranges = append(ranges, Range{From: h, To: h})
	}
	return ranges
}

// FindMissingHeights returns a slice of missing block heights between start and end.
// Uses generate_series with anti-join for efficient gap detection.
func FindMissingHeights(ctx context.Context, db Querier, start, end uint64, limit int) ([]uint64, error) {
	query := fmt.Sprintf(`
		SELECT gs.height
		FROM generate_series($1::bigint, $2::bigint) AS gs(height)
		WHERE NOT EXISTS (
			SELECT 1 FROM %s p
			WHERE p.height = gs.height
		)
		ORDER BY gs.height
		LIMIT $3
	`, progressTable)

	rows, err := db.Query(ctx, query, int64(start), int64(end), limit)
	if err != nil {
		return nil, fmt.Errorf("query missing heights: %w", err)
	}
	defer rows.Close()

	var heights []uint64
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan height: %w", err)
		}
		heights = append(heights, uint64(h))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return heights, nil
}

// GetGapStats returns statistics about gaps in the indexed blocks.
func GetGapStats(ctx context.Context, db Querier, start, end uint64) (*GapStats, error) {
	if end < start {
		return &GapStats{}, nil
	}

	query := fmt.Sprintf(`
		WITH expected AS (
			SELECT COUNT(*) as total FROM generate_series($1::bigint, $2::bigint)
		),
		indexed AS (
			SELECT COUNT(*) as total FROM %s
			WHERE height BETWEEN $1 AND $2
		),
		missing AS (
			SELECT gs.height
			FROM generate_series($1::bigint, $2::bigint) AS gs(height)
			WHERE NOT EXISTS (
				SELECT 1 FROM %s p WHERE p.height = gs.height
			)
		),
		missing_stats AS (
			SELECT
				COUNT(*) as total,
				MIN(height) as first_missing,
				MAX(height) as last_missing
			FROM missing
		)
		SELECT
			expected.total,
			indexed.total,
			missing_stats.total,
			COALESCE(missing_stats.first_missing, 0),
			COALESCE(missing_stats.last_missing, 0)
		FROM expected, indexed, missing_stats
	`, progressTable, progressTable)

	var expected, indexed, missing, first, last int64
	err := db.QueryRow(ctx, query, int64(start), int64(end)).Scan(&expected, &indexed, &missing, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("query gap stats: %w", err)
	}

	return &GapStats{
		TotalExpected: uint64(expected),
		TotalIndexed:  uint64(indexed),
		TotalMissing:  uint64(missing),
		FirstMissing:  uint64(first),
		LastMissing:   uint64(last),
	}, nil
}
