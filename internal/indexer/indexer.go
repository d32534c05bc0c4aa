package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	indexermodels "github.com/canopy-network/dao-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/dao-indexer/pkg/db/postgres/admin"
	"github.com/canopy-network/dao-indexer/pkg/db/postgres/chain"
	"github.com/canopy-network/dao-indexer/pkg/ledger"
	"github.com/canopy-network/dao-indexer/pkg/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the part of the RPC client the indexer needs.
type ChainReader interface {
	Identity(ctx context.Context, org common.Address) (*ledger.Identity, error)
	VotingMachine(ctx context.Context, org, scheme common.Address) (common.Address, error)
	Logs(ctx context.Context, f rpc.LogFilter) ([]types.Log, error)
}

// OrganizationStore persists the organizations whose contracts are watched.
type OrganizationStore interface {
	UpsertOrganization(ctx context.Context, org *indexermodels.Organization) error
	WatchedAddresses(ctx context.Context) ([]string, error)
	InsertEventLogs(ctx context.Context, rows []indexermodels.EventLog) error
}

// ProgressReader reports the highest indexed height.
type ProgressReader interface {
	LastIndexed(ctx context.Context) (uint64, error)
}

// Config locates the shared contracts.
type Config struct {
	Creator common.Address
	Scheme  common.Address

	// DiscoveryConcurrency bounds parallel identity reads for newly found organizations.
	DiscoveryConcurrency int

	// BacklogChunk is the widest eth_getLogs window used when catching up the
	// history of an organization registered after later heights were indexed.
	BacklogChunk uint64
}

// Indexer copies contract logs of every known organization into Postgres.
type Indexer struct {
	rpc      ChainReader
	orgs     OrganizationStore
	progress ProgressReader
	chain    *chain.DB
	admin    *admin.DB
	cfg      Config
}

// New creates a new Indexer.
func New(rpcClient ChainReader, chainDB *chain.DB, adminDB *admin.DB, cfg Config) *Indexer {
	if cfg.DiscoveryConcurrency <= 0 {
		cfg.DiscoveryConcurrency = 4
	}
	if cfg.BacklogChunk == 0 {
		cfg.BacklogChunk = 5000
	}
	return &Indexer{
		rpc:      rpcClient,
		orgs:     chainDB,
		progress: adminDB,
		chain:    chainDB,
		admin:    adminDB,
		cfg:      cfg,
	}
}

// IndexBlock indexes a single block.
func (idx *Indexer) IndexBlock(ctx context.Context, height uint64) error {
	return idx.IndexRange(ctx, height, height)
}

// IndexRange indexes every block in [from, to]. Organizations created in the
// range are registered and their logs from the same range are included.
// Writes are idempotent, so a range may be indexed again safely.
func (idx *Indexer) IndexRange(ctx context.Context, from, to uint64) error {
	if to < from {
		return fmt.Errorf("invalid range [%d, %d]", from, to)
	}
	start := time.Now()

	// Phase 1: fetch everything over RPC
	data, err := idx.fetchRange(ctx, from, to)
	if err != nil {
		slog.Error("failed to fetch range",
			"from", from,
			"to", to,
			"err", err,
		)
		return fmt.Errorf("fetch range: %w", err)
	}

	// Phase 2: write all data atomically (any DB failure → rollback)
	if err := idx.writeRange(ctx, data, start); err != nil {
		return fmt.Errorf("write range: %w", err)
	}

	slog.Debug("indexed range",
		"from", from,
		"to", to,
		"organizations", len(data.Organizations),
		"logs", len(data.Logs),
		"backlog", len(data.Backlog),
		"duration", time.Since(start),
	)

	return nil
}

// DiscoverOrganizations registers every organization created in [from, to].
// Backfill runs it before indexing ranges concurrently so each range sees every
// organization that existed before it. An organization seen for the first time
// gets its logs up to the last indexed height copied before it is registered,
// since heights indexed without it watched are not gaps.
func (idx *Indexer) DiscoverOrganizations(ctx context.Context, from, to uint64) (int, error) {
	orgs, err := idx.discover(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(orgs) == 0 {
		return 0, nil
	}

	stored, err := idx.orgs.WatchedAddresses(ctx)
	if err != nil {
		return 0, fmt.Errorf("watched addresses: %w", err)
	}
	if fresh := unregistered(stored, orgs); len(fresh) > 0 {
		last, err := idx.progress.LastIndexed(ctx)
		if err != nil {
			return 0, fmt.Errorf("last indexed: %w", err)
		}
		logs, err := idx.backlog(ctx, fresh, 0, last)
		if err != nil {
			return 0, err
		}
		rows := make([]indexermodels.EventLog, len(logs))
		for i, l := range logs {
			rows[i] = LogToRow(l)
		}
		if err := idx.orgs.InsertEventLogs(ctx, rows); err != nil {
			return 0, fmt.Errorf("insert backlog: %w", err)
		}
	}

	for i := range orgs {
		if err := idx.orgs.UpsertOrganization(ctx, &orgs[i]); err != nil {
			return 0, fmt.Errorf("upsert organization %s: %w", orgs[i].Avatar, err)
		}
	}
	return len(orgs), nil
}
