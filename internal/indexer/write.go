package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/canopy-network/dao-indexer/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
)

// writeRange writes organizations, logs and progress of a range in a single
// atomic transaction. Any write failure causes rollback and returns error (NACK).
func (idx *Indexer) writeRange(ctx context.Context, data *RangeData, start time.Time) error {
	slog.Debug("pg transaction: BEGIN", "from", data.From, "to", data.To)

	err := idx.chain.BeginFunc(ctx, func(tx pgx.Tx) error {
		batch := idx.chain.PrepareBatch(ctx)

		for i := range data.Organizations {
			idx.chain.QueueOrganization(batch, &data.Organizations[i])
		}
		for _, l := range data.Logs {
			row := LogToRow(l)
			idx.chain.QueueEventLog(batch, &row)
		}
		for _, l := range data.Backlog {
			row := LogToRow(l)
			idx.chain.QueueEventLog(batch, &row)
		}

		counts := data.eventsByHeight()
		perBlockMs := float64(time.Since(start).Microseconds()) / 1000.0 / float64(data.To-data.From+1)
		for h := data.From; h <= data.To; h++ {
			idx.admin.QueueIndexed(batch, h, counts[h], perBlockMs)
		}

		slog.Debug("pg transaction: executing batch", "from", data.From, "statements", batch.Len())
		return postgres.ExecBatch(ctx, tx, batch)
	})

	if err != nil {
		slog.Error("pg transaction: ROLLBACK", "from", data.From, "to", data.To, "err", err)
		return err
	}

	slog.Debug("pg transaction: COMMIT", "from", data.From, "to", data.To, "duration", time.Since(start))
	return nil
}
