package chain

import (
	"context"
	"fmt"

	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/dao-indexer/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
)

// initEventLogs creates the dao_events table
func (db *DB) initEventLogs(ctx context.Context) error {
	table := db.SchemaTable(indexermodels.EventLogsTableName)
	query := fmt.Sprintf(`
		%s;

		CREATE INDEX IF NOT EXISTS idx_dao_events_stream ON %s(contract, topic0, block_number, log_index);
		CREATE INDEX IF NOT EXISTS idx_dao_events_block ON %s(block_number);
	`, indexermodels.CreateTableSQL(table, indexermodels.EventLogColumns), table, table)

	return db.Exec(ctx, query)
}

// QueueEventLog adds an idempotent insert of e to batch.
func (db *DB) QueueEventLog(batch *pgx.Batch, e *indexermodels.EventLog) {
	query := indexermodels.InsertSQL(
		db.SchemaTable(indexermodels.EventLogsTableName),
		indexermodels.EventLogColumns,
		"ON CONFLICT (tx_hash, log_index) DO NOTHING",
	)
	batch.Queue(query, e.Values()...)
}

// EventLogs returns the logs of one contract with one signature in [from, to],
// ordered by block and log index. A nil to reads to the newest indexed block.
func (db *DB) EventLogs(ctx context.Context, contract, topic0 string, from uint64, to *uint64) ([]indexermodels.EventLog, error) {
	query := fmt.Sprintf(`
		SELECT tx_hash, log_index, block_number, block_hash, contract, topic0, topics, data
		FROM %s
		WHERE contract = $1
		  AND topic0 = $2
		  AND block_number >= $3
		  AND ($4::BIGINT IS NULL OR block_number <= $4)
		ORDER BY block_number, log_index
	`, db.SchemaTable(indexermodels.EventLogsTableName))

	var upper *int64
	if to != nil {
		v := int64(*to)
		upper = &v
	}

	rows, err := db.Query(ctx, query, contract, topic0, int64(from), upper)
	if err != nil {
		return nil, fmt.Errorf("query event logs: %w", err)
	}
	defer rows.Close()

	var logs []indexermodels.EventLog
	for rows.Next() {
		var (
			e        indexermodels.EventLog
			logIndex int32
			block    int64
		)
		if err := rows.Scan(&e.TxHash, &logIndex, &block, &e.BlockHash, &e.Contract, &e.Topic0, &e.Topics, &e.Data); err != nil {
			return nil, fmt.Errorf("scan event log: %w", err)
		}
		e.LogIndex = uint32(logIndex)
		e.BlockNumber = uint64(block)
		logs = append(logs, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return logs, nil
}

// InsertEventLogs idempotently inserts rows in one transaction.
func (db *DB) InsertEventLogs(ctx context.Context, rows []indexermodels.EventLog) error {
	if len(rows) == 0 {
		return nil
	}
	return db.BeginFunc(ctx, func(tx pgx.Tx) error {
		batch := db.PrepareBatch(ctx)
		for i := range rows {
			db.QueueEventLog(batch, &rows[i])
		}
		return postgres.ExecBatch(ctx, tx, batch)
	})
}
